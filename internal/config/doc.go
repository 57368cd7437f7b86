// Package config loads verdant.json or verdant.yaml.
//
// # Configuration File Structure
//
//	{
//	  "production": true,
//	  "server": {"port": 8080, "writeTimeout": "30s"},
//	  "paths": {"apiBase": "/api", "dataPrefix": "/__data"},
//	  "cache": {"regenerationTimeout": "10s", "loaderTimeout": "5s"},
//	  "revalidate": {
//	    "rateLimit": 5,
//	    "nats": {"url": "nats://localhost:4222"}
//	  },
//	  "export": {"output": "s3://my-site/www", "s3": {"region": "eu-west-1"}}
//	}
//
// Durations are Go duration strings or numbers of seconds. Any missing
// field takes its default.
//
// # Environment
//
// VERDANT_REVALIDATE_SECRET, VERDANT_PRODUCTION, VERDANT_PORT,
// VERDANT_BUILD_ID and VERDANT_NATS_URL override the file.
//
// # Usage
//
//	cfg, err := config.Load(".")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := cfg.Validate(); err != nil {
//	    log.Fatal(err)
//	}
package config
