package main

import (
	"flag"
	"net/http"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/tmater/propcheck/internal/mocktarget"
)

func main() {
	addr := flag.String("addr", ":9090", "listen address")
	authURL := flag.String("auth-url", "", "external URL used for OAuth callbacks (default: request host)")
	callbackURL := flag.String("callback-url", "", "redirect_uri to send the provider, to simulate a mismatch")
	clientID := flag.String("client-id", "mock-client.apps.googleusercontent.com", "OAuth client id put in the sign-in redirect")
	master := flag.String("master-email", "", "email that gets the master role")
	tokens := flag.String("tokens", "", "comma-separated token=email pairs accepted as Bearer sessions")
	cacheMiss := flag.Bool("schema-cache-miss", false, "answer every REST table with PGRST205")
	missing := flag.String("missing-tables", "", "comma-separated tables the setup endpoint reports as missing")
	debug := flag.Bool("debug", false, "log every request")
	flag.Parse()

	if *debug {
		log.SetLevel(log.DebugLevel)
	}

	opts := mocktarget.Options{
		AuthURL:         *authURL,
		CallbackURL:     *callbackURL,
		ClientID:        *clientID,
		MasterEmail:     *master,
		Tokens:          parseTokens(*tokens),
		SchemaCacheMiss: *cacheMiss,
		MissingTables:   splitList(*missing),
	}

	log.Infof("propcheck-mock listening on %s", *addr)
	log.Infof("endpoints: /api/auth/* /api/setup-database /api/properties /api/admin/users /rest/v1/{table}")
	if err := http.ListenAndServe(*addr, mocktarget.New(opts).Routes()); err != nil {
		log.Fatalf("mock server error: %s", err)
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func parseTokens(s string) map[string]string {
	tokens := make(map[string]string)
	for _, pair := range splitList(s) {
		token, email, ok := strings.Cut(pair, "=")
		if !ok {
			log.Warnf("mock: ignoring token %q without =email", pair)
			continue
		}
		tokens[token] = email
	}
	return tokens
}
