package audit

import "strings"

// ActionResource holds action and resource derived from an HTTP method and chi route pattern.
type ActionResource struct {
	Action   string
	Resource string
}

// routeOverrides names transitions that a plain method-to-verb mapping would blur.
var routeOverrides = map[string]ActionResource{
	"PUT /organizations/{slug}/members/{memberID}":    {Action: "role_changed", Resource: "user"},
	"DELETE /organizations/{slug}/members/{memberID}": {Action: "user_removed", Resource: "user"},
	"DELETE /organizations/{slug}/invites/{inviteID}": {Action: "revoke", Resource: "invite"},
	"PATCH /organizations/{slug}/owner":               {Action: "transfer_ownership", Resource: "organization"},
	"DELETE /organizations/{slug}":                    {Action: "shutdown", Resource: "organization"},
}

// ParseRoute returns action and resource for a request, e.g. ("POST", "/organizations/{slug}/projects")
// gives create/project. The resource is the last literal path segment, singularized. A trailing
// literal after an id ("/invites/{inviteID}/accept") is the action itself.
func ParseRoute(method, pattern string) ActionResource {
	method = strings.ToUpper(method)
	pattern = strings.TrimSuffix(pattern, "/")
	if ar, ok := routeOverrides[method+" "+pattern]; ok {
		return ar
	}

	var literals []string
	endsWithParam := false
	for _, seg := range strings.Split(pattern, "/") {
		if seg == "" || seg == "*" {
			continue
		}
		if strings.HasPrefix(seg, "{") {
			endsWithParam = true
			continue
		}
		endsWithParam = false
		literals = append(literals, seg)
	}
	if len(literals) == 0 {
		return ActionResource{Action: methodToAction(method, false), Resource: "unknown"}
	}

	last := literals[len(literals)-1]
	if !endsWithParam && len(literals) > 1 && isVerb(last) {
		return ActionResource{Action: last, Resource: singular(literals[len(literals)-2])}
	}
	return ActionResource{Action: methodToAction(method, endsWithParam), Resource: singular(last)}
}

func methodToAction(method string, item bool) string {
	switch method {
	case "GET":
		if item {
			return "get"
		}
		return "list"
	case "POST":
		return "create"
	case "PUT", "PATCH":
		return "update"
	case "DELETE":
		return "delete"
	default:
		return strings.ToLower(method)
	}
}

func isVerb(seg string) bool {
	switch seg {
	case "accept", "reject", "recover", "reset":
		return true
	}
	return false
}

func singular(seg string) string {
	switch seg {
	case "members":
		return "user"
	case "billing":
		return "billing"
	}
	return strings.TrimSuffix(seg, "s")
}
