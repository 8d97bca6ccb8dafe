package bridge

import (
	"net/url"
	"strings"

	"github.com/goliatone/go-hostbridge/core"
)

// Fallback profiles are synthesized deterministically from the embedding
// page's own query parameters when the host does not answer. Credit fields
// are always zero: the page URL is not an accounting source.
const (
	fallbackParamUserID      = "uid"
	fallbackParamUsername    = "uname"
	fallbackParamDisplayName = "display_name"
	fallbackParamAvatarURL   = "avatar"
	fallbackParamLocale      = "locale"
)

// SynthesizeProfile builds the degraded profile from query. The same query
// always produces the same profile.
func SynthesizeProfile(query url.Values) core.UserProfile {
	profile := core.UserProfile{
		UserID:      strings.TrimSpace(query.Get(fallbackParamUserID)),
		Username:    strings.TrimSpace(query.Get(fallbackParamUsername)),
		DisplayName: strings.TrimSpace(query.Get(fallbackParamDisplayName)),
		AvatarURL:   strings.TrimSpace(query.Get(fallbackParamAvatarURL)),
		Locale:      strings.TrimSpace(query.Get(fallbackParamLocale)),
		Credits:     0,
		Fallback:    true,
	}
	if profile.UserID == "" {
		profile.UserID = "anonymous"
	}
	if profile.Username == "" {
		profile.Username = profile.UserID
	}
	if profile.DisplayName == "" {
		profile.DisplayName = profile.Username
	}
	return profile
}

// decodeQuery reverses param obfuscation for allow-listed keys. Values that
// fail to decode pass through untouched so a missing or rotated key degrades
// to the raw value instead of erroring.
func decodeQuery(query url.Values, codec core.ParamCodec, allowList []string) url.Values {
	if query == nil {
		return url.Values{}
	}
	if codec == nil || len(allowList) == 0 {
		return query
	}
	allowed := make(map[string]bool, len(allowList))
	for _, name := range allowList {
		allowed[strings.ToLower(strings.TrimSpace(name))] = true
	}
	decoded := url.Values{}
	for name, values := range query {
		for _, value := range values {
			if allowed[strings.ToLower(name)] {
				if plain, err := codec.DecodeValue(name, value); err == nil {
					decoded.Add(name, plain)
					continue
				}
			}
			decoded.Add(name, value)
		}
	}
	return decoded
}
