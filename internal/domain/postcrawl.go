package domain

import "encoding/json"

// SocialPlatform is a platform the remote API can search and extract from.
type SocialPlatform string

const (
	PlatformReddit SocialPlatform = "reddit"
	PlatformTikTok SocialPlatform = "tiktok"
)

// SocialPlatforms lists every supported platform, in the order they are advertised.
func SocialPlatforms() []SocialPlatform {
	return []SocialPlatform{PlatformReddit, PlatformTikTok}
}

// ResponseMode selects the shape of extracted posts.
type ResponseMode string

const (
	ResponseModeRaw      ResponseMode = "raw"
	ResponseModeMarkdown ResponseMode = "markdown"
)

// ResponseModes lists every supported response mode.
func ResponseModes() []ResponseMode {
	return []ResponseMode{ResponseModeRaw, ResponseModeMarkdown}
}

// Request defaults applied before calling the remote API.
const (
	DefaultPage         = 1
	DefaultResults      = 10
	DefaultResponseMode = ResponseModeRaw
)

// SearchRequest is the body of a search call. A nil SocialPlatforms means
// "not specified"; an empty non-nil slice is rejected.
type SearchRequest struct {
	Query           string           `json:"query"`
	Page            int              `json:"page,omitempty"`
	Results         int              `json:"results,omitempty"`
	SocialPlatforms []SocialPlatform `json:"social_platforms,omitempty"`
}

// SearchAndExtractRequest is the body of a combined search-and-extract call.
type SearchAndExtractRequest struct {
	Query           string           `json:"query"`
	Page            int              `json:"page,omitempty"`
	Results         int              `json:"results,omitempty"`
	SocialPlatforms []SocialPlatform `json:"social_platforms,omitempty"`
	ResponseMode    ResponseMode     `json:"response_mode,omitempty"`
	IncludeComments bool             `json:"include_comments"`
}

// ExtractRequest is the body of an extract call.
type ExtractRequest struct {
	URLs            []string     `json:"urls"`
	ResponseMode    ResponseMode `json:"response_mode,omitempty"`
	IncludeComments bool         `json:"include_comments"`
}

// SearchResult and ExtractedPost are kept as raw JSON so upstream field order
// survives re-encoding.
type (
	SearchResult  = json.RawMessage
	ExtractedPost = json.RawMessage
)
