// Curve is an edge gateway for LLM applications.
//
// It sits in front of an OpenAI-compatible LLM and, for every chat
// completion request:
//   - screens the prompt with a jailbreak guard
//   - routes it to a prompt target by embedding similarity or intent
//   - extracts tool arguments with a function-calling model, checks them
//     for hallucinated values and calls the developer API
//   - forwards the enriched conversation to the LLM and hands the tool
//     exchange back to the client as continuation state
//
// Usage:
//
//	# Start the gateway with the default configuration file
//	curve run
//
//	# Start with a custom configuration file
//	curve run --config /etc/curve/config.yaml
//
//	# Check a configuration without starting
//	curve validate --config config.yaml
//
//	# Show version information
//	curve version
package main

func main() {
	Execute()
}
