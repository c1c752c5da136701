// Package config provides configuration management for the Curve prompt gateway.
//
// Configuration is loaded from a YAML file, completed with defaults, optionally
// overridden from the environment, and validated. The result is an immutable
// *Config that callers pass by reference; there is no package-level state.
//
//	cfg, err := config.LoadConfigWithEnvOverrides("curve.yaml")
//
// # Environment Variable Overrides
//
// Environment variables follow the naming convention CURVE_SECTION_FIELD:
//
//   - CURVE_LISTENER_LISTEN_ADDRESS overrides listener.listen_address
//   - CURVE_LLM_UPSTREAM_BASE_URL overrides llm_upstream.base_url
//   - CURVE_TELEMETRY_LOGGING_LEVEL overrides telemetry.logging.level
//
// # Example Configuration
//
//	model_server:
//	  base_url: "http://model-server:8000"
//
//	llm_upstream:
//	  base_url: "https://api.openai.com"
//	  api_key_secret: "openai-api-key"
//
//	endpoints:
//	  api_server:
//	    endpoint: "http://api-server:80"
//
//	prompt_targets:
//	  - name: weather_forecast
//	    description: "get the weather forecast for a city"
//	    endpoint:
//	      name: api_server
//	      path: /weather
//	    parameters:
//	      - name: city
//	        type: string
//	        required: true
//
//	prompt_guards:
//	  input_guards:
//	    jailbreak:
//	      on_exception:
//	        message: "I can't help with that."
package config
