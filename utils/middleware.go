package utils

import (
	"encoding/json"
	"net/url"

	"github.com/pocketbase/pocketbase/core"
	"github.com/pocketbase/pocketbase/tools/hook"
)

// AuthCookieMiddleware is an HTTP middleware that takes the PocketBase auth token
// from the `pb_auth` cookie, manually retrieves the auth state from this token,
// and places it on the request event, accessible by HTTP handlers. Organization
// users creating branded rooms authenticate this way.
func AuthCookieMiddleware() *hook.Handler[*core.RequestEvent] {
	return &hook.Handler[*core.RequestEvent]{
		Id:   "AuthCookieMiddleware",
		Func: authCookie,
	}
}

func authCookie(e *core.RequestEvent) error {
	if e.Auth != nil {
		return e.Next()
	}

	tokenCookie, err := e.Request.Cookie("pb_auth")
	if err != nil {
		return e.Next()
	}

	decodedCookie, err := url.QueryUnescape(tokenCookie.Value)
	if err != nil {
		return e.Next()
	}

	var cookieObject map[string]interface{}
	if err := json.Unmarshal([]byte(decodedCookie), &cookieObject); err != nil {
		return e.Next()
	}

	token, ok := cookieObject["token"].(string)
	if !ok {
		return e.Next()
	}

	m, err := e.App.FindAuthRecordByToken(token, core.TokenTypeAuth)
	if err != nil {
		return e.Next()
	}

	e.Auth = m
	return e.Next()
}
