package consts

// Search strategies
const (
	Strategy_API      = "api"
	Strategy_Embedded = "embedded"
	Strategy_HTML     = "html"
)

// LLM providers
const (
	Provider_DeepSeek   = "deepseek"
	Provider_OpenAI     = "openai"
	Provider_OpenAIJSON = "openai-json"
)

// Negotiation store drivers
const (
	Store_Memory = "memory"
	Store_SQLite = "sqlite"
)

const (
	Locale_NL = "nl"
	Locale_EN = "en"
)

const Version = "0.3.0"
