// Package render defines the page renderer contract and writes the HTML
// document shell around renderer output.
//
// Renderers produce body markup only. WriteDocument adds the head (title,
// meta and link tags), a modulepreload link per client chunk, the JSON
// data island used for hydration, and the chunk script tags.
package render
