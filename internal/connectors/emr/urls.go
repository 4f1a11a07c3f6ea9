package emr

import "net/url"

// hostPrefix is the servlet root the EMR host application is mounted under.
const hostPrefix = "/openmrs"

// successRedirectPage is the dashboard page route lifecycle actions redirect
// back to when the backend completes a successUrl-style request.
const successRedirectPage = "/openmrs/nigeriaemr/customNdr.page?"

// URLOptions overrides the defaults of BuildActionURL. An empty Extension
// means ".action".
type URLOptions struct {
	BaseURL   string
	Extension string
}

// BuildActionURL renders a {base}/{module}/{controller}/{action}{ext} action
// path. It is a deterministic string template: inputs are not validated and
// malformed segments propagate verbatim into the URL.
func BuildActionURL(module, controller, action string, opts ...URLOptions) string {
	baseURL := ""
	extension := ".action"
	if len(opts) > 0 {
		if opts[0].BaseURL != "" {
			baseURL = opts[0].BaseURL
		}
		if opts[0].Extension != "" {
			extension = opts[0].Extension
		}
	}
	return baseURL + "/" + module + "/" + controller + "/" + action + extension
}

// BuildHostActionURL renders a host-rooted action path of the form
// /openmrs/{module}/{controller}/{action}.action and, when includeSuccessURL
// is set, appends the URL-encoded redirect back to the dashboard page.
func BuildHostActionURL(module, controller, action string, includeSuccessURL bool) string {
	base := hostPrefix + "/" + module + "/" + controller + "/" + action + ".action"
	if includeSuccessURL {
		return base + "?successUrl=" + url.QueryEscape(successRedirectPage)
	}
	return base
}
