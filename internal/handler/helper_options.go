package handler

import (
	"net/url"
)

func boolOption(name string, fallback bool, options url.Values) bool {
	if len(options[name]) == 0 {
		return fallback
	}
	if options[name][0] == "" {
		return fallback
	}
	return options[name][0] == "true"
}

// optionalBool returns nil if the option is not set.
func optionalBool(name string, options url.Values) *bool {
	if len(options[name]) == 0 || options[name][0] == "" {
		return nil
	}
	v := options[name][0] == "true"
	return &v
}

func stringOption(name string, alias string, options url.Values) string {
	if len(options[name]) > 0 {
		return options[name][0]
	}
	if len(options[alias]) > 0 {
		return options[alias][0]
	}
	return ""
}
