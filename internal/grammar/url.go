package grammar

import (
	"net/url"
	"strings"
)

const urlRules = `url ::= scheme "://" authority path{0,}
scheme ::= "https" | "http"
authority ::= host (":" port){0,1}
host ::= domain | ipv4address
domain ::= subdomains tld
subdomains ::= (label "."){1,3}
label ::= [a-zA-Z0-9] [a-zA-Z0-9-]{0,62}
tld ::= [a-zA-Z]{2,63}
ipv4address ::= dec-octet "." dec-octet "." dec-octet "." dec-octet
dec-octet ::= [0-9] | [1-9][0-9] | "1"[0-9][0-9] | "2"[0-4][0-9] | "25"[0-5]
port ::= [0-9]{1,5}
path ::= ("/" segment)
segment ::= pchar{0,}
pchar ::= unreserved | pct-encoded | sub-delims | ":" | "@"
unreserved ::= [a-zA-Z0-9-._~]
pct-encoded ::= "%" hexdig hexdig
hexdig ::= [0-9a-fA-F]
sub-delims ::= [!$&'()*+,;=]`

// URL constrains output to an absolute http or https URL.
type URL struct {
	base
}

func NewURL() *URL {
	return &URL{}
}

func (g *URL) Kind() Kind { return KindURL }

func (g *URL) Source() string {
	return g.memo(func() string {
		return rootRule(`" " `, "url", g.done, g.noResult) + "\n" + urlRules
	})
}

func (g *URL) Validate(content string) (string, error) {
	u, err := g.Parse(content)
	if err != nil {
		return "", err
	}
	return u.String(), nil
}

func (g *URL) Parse(content string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimSpace(content))
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return nil, parseError(content, "Url")
	}
	return u, nil
}
