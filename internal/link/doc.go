// Package link normalizes URLs and decides which discovered links the
// crawler may follow.
//
// Normalization is what makes the visited set work: two spellings of the
// same page must map to one string. The rules are deliberately small:
//   - relative references are resolved against the page they were found on
//   - the fragment is dropped
//   - one trailing slash is dropped unless the path is exactly "/"
//   - the host is lowercased
//
// Filtering is a pure function of the link and a Policy, so the crawl
// engine can be tested without any network access.
package link
