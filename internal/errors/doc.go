// Package errors provides coded, explained errors for verdant's CLI and
// startup path.
//
// Each code maps to a category, a message and a longer explanation:
//
//	V100-V119  config  configuration loading and validation
//	V120-V139  route   page, API and middleware registration
//	V140-V159  cache   generation failures surfaced at build time
//	V160-V179  cli     command failures
//
// # Usage
//
//	err := errors.New("V102").
//	    WithLocationFromYAML("verdant.yaml", yamlErr).
//	    WithSuggestion("Check the indentation around the reported line")
//
//	errors.PrintError(err)
//
// Registration errors from the router, api and page packages are mapped
// to codes with Classify.
package errors
