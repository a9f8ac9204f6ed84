// Package github provides an HTTP client for the GitHub REST API calls the
// review pipeline needs: listing a pull request's changed files, fetching
// file contents at the head commit, and posting the summary comment.
//
// Every method takes the bearer token explicitly because tokens are scoped
// per installation and re-acquired per review run; the client itself holds
// no credentials.
package github
