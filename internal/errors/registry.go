package errors

import "sort"

// ErrorTemplate is the registered text for a code.
type ErrorTemplate struct {
	Category Category
	Message  string
	Detail   string
	DocURL   string
}

const docBase = "https://verdant.dev/docs/errors/"

var registry = map[string]ErrorTemplate{
	// ============================================
	// Configuration (V100-V119)
	// ============================================

	"V100": {
		Category: CategoryConfig,
		Message:  "Cannot read configuration file",
		Detail:   "The configuration file exists but could not be read.",
		DocURL:   docBase + "V100",
	},
	"V101": {
		Category: CategoryConfig,
		Message:  "Configuration file not found",
		Detail:   "No verdant.json, verdant.yaml or verdant.yml was found in the project directory.",
		DocURL:   docBase + "V101",
	},
	"V102": {
		Category: CategoryConfig,
		Message:  "Invalid configuration syntax",
		Detail:   "The configuration file could not be parsed.",
		DocURL:   docBase + "V102",
	},
	"V103": {
		Category: CategoryConfig,
		Message:  "Invalid port",
		Detail:   "The server port must be between 1 and 65535.",
		DocURL:   docBase + "V103",
	},
	"V104": {
		Category: CategoryConfig,
		Message:  "Invalid duration",
		Detail:   "Durations use Go syntax such as \"500ms\", \"10s\" or \"1m30s\" and must be positive.",
		DocURL:   docBase + "V104",
	},
	"V105": {
		Category: CategoryConfig,
		Message:  "Revalidation secret not set",
		Detail:   "Production mode requires a revalidation secret so the on-demand endpoint can authenticate callers.",
		DocURL:   docBase + "V105",
	},
	"V106": {
		Category: CategoryConfig,
		Message:  "Unsupported configuration format",
		Detail:   "Configuration files must end in .json, .yaml or .yml.",
		DocURL:   docBase + "V106",
	},
	"V107": {
		Category: CategoryConfig,
		Message:  "Invalid mount path",
		Detail:   "The API base, data prefix and revalidation path must be distinct absolute paths.",
		DocURL:   docBase + "V107",
	},

	// ============================================
	// Routes (V120-V139)
	// ============================================

	"V120": {
		Category: CategoryRoute,
		Message:  "Invalid route pattern",
		Detail:   "Patterns are slash-separated segments: literals, :name parameters and a trailing *name catch-all.",
		DocURL:   docBase + "V120",
	},
	"V121": {
		Category: CategoryRoute,
		Message:  "Duplicate route",
		Detail:   "Two routes have the same shape. Patterns that differ only in parameter names match the same paths.",
		DocURL:   docBase + "V121",
	},
	"V122": {
		Category: CategoryRoute,
		Message:  "Ambiguous API path parameters",
		Detail:   "An API route declares more than one path parameter, so its path cannot be derived from its key.",
		DocURL:   docBase + "V122",
	},
	"V123": {
		Category: CategoryRoute,
		Message:  "Invalid revalidation window",
		Detail:   "A revalidating page needs a positive window.",
		DocURL:   docBase + "V123",
	},
	"V124": {
		Category: CategoryRoute,
		Message:  "Invalid API route tree",
		Detail:   "The API route tree contains a nil node, a method declared twice on one path, or a method key that does not match its endpoint.",
		DocURL:   docBase + "V124",
	},
	"V125": {
		Category: CategoryRoute,
		Message:  "Page has no renderer",
		Detail:   "Every page definition needs a Render.",
		DocURL:   docBase + "V125",
	},
	"V126": {
		Category: CategoryRoute,
		Message:  "Invalid middleware rule",
		Detail:   "A middleware rule has no handler or an include/exclude glob that does not compile.",
		DocURL:   docBase + "V126",
	},

	// ============================================
	// Cache (V140-V159)
	// ============================================

	"V140": {
		Category: CategoryCache,
		Message:  "Page generation timed out",
		Detail:   "Loading or rendering the page took longer than the regeneration timeout. Cached output, if any, is still served.",
		DocURL:   docBase + "V140",
	},
	"V141": {
		Category: CategoryCache,
		Message:  "Prerender failed",
		Detail:   "A page could not be generated while exporting.",
		DocURL:   docBase + "V141",
	},

	// ============================================
	// CLI (V160-V179)
	// ============================================

	"V160": {
		Category: CategoryCLI,
		Message:  "Unknown export target",
		Detail:   "Export targets are a directory path or s3://bucket/prefix.",
		DocURL:   docBase + "V160",
	},
	"V161": {
		Category: CategoryCLI,
		Message:  "Revalidation request failed",
		Detail:   "The server rejected the revalidation request or could not be reached.",
		DocURL:   docBase + "V161",
	},
	"V162": {
		Category: CategoryCLI,
		Message:  "Server failed",
		Detail:   "The HTTP server stopped with an error.",
		DocURL:   docBase + "V162",
	},
	"V163": {
		Category: CategoryCLI,
		Message:  "Cannot connect to NATS",
		Detail:   "Revalidation broadcasting is configured but the NATS server could not be reached.",
		DocURL:   docBase + "V163",
	},
}

// GetAllCodes returns every registered code in order.
func GetAllCodes() []string {
	codes := make([]string, 0, len(registry))
	for code := range registry {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// GetTemplate returns the template for code.
func GetTemplate(code string) (ErrorTemplate, bool) {
	t, ok := registry[code]
	return t, ok
}

// Register adds or replaces a template.
func Register(code string, template ErrorTemplate) {
	registry[code] = template
}
