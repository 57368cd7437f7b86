// Package export writes prerendered pages to a directory or an S3 bucket.
//
// Every static and revalidating page is expanded through its StaticParams,
// rendered by the page engine and stored as <path>/index.html. Paths
// whose loader reports not found or a redirect are skipped.
package export
