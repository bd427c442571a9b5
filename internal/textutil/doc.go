// Package textutil fingerprints draft text so near-duplicate drafts can be
// flagged before they reach a platform that rejects repeated posts.
//
// Fingerprints are term-frequency vectors. Tokenization lowercases text,
// drops URLs, strips leading # and @ from hashtags and mentions, splits on
// anything that is not a letter or digit, and skips tokens shorter than 3
// runes. A Corpus built from the other drafts supplies IDF weights so words
// every draft shares count for less.
package textutil
