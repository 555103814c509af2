package urls

// Documentation URLs for guides and troubleshooting
// All URLs point to the documentation site at https://muurk.github.io/obsws/

// ProtocolReference is the full wire protocol reference, covering the
// envelope formats, close codes, and both supported encodings.
const ProtocolReference = "https://muurk.github.io/obsws/protocol/reference/"

// AuthenticationGuide explains the challenge-response authentication flow
// and how clients derive the authentication string.
const AuthenticationGuide = "https://muurk.github.io/obsws/protocol/authentication/"

// GettingStarted is the quick start guide for running the server
// and connecting a first client.
const GettingStarted = "https://muurk.github.io/obsws/getting-started/overview/"

// ConfigurationGuide documents the config file location, every setting,
// and how command-line flags override it.
const ConfigurationGuide = "https://muurk.github.io/obsws/getting-started/configuration/"

// TroubleshootingGuide provides solutions to common issues
// encountered when connecting clients or running the server.
const TroubleshootingGuide = "https://muurk.github.io/obsws/troubleshooting/"
