package session

import "net/http"

// Credential is one named value presented by the caller, e.g. a cookie.
type Credential struct {
	Name  string
	Value string
}

// Credentials is the ordered sequence of credentials presented with a
// request. Order is preserved as presented.
type Credentials []Credential

// Lookup returns the value of the first credential with the given name.
func (c Credentials) Lookup(name string) (string, bool) {
	for _, cred := range c {
		if cred.Name == name {
			return cred.Value, true
		}
	}
	return "", false
}

// FromCookies builds Credentials from the request cookies in header order.
func FromCookies(r *http.Request) Credentials {
	if r == nil {
		return nil
	}
	cookies := r.Cookies()
	if len(cookies) == 0 {
		return nil
	}
	creds := make(Credentials, 0, len(cookies))
	for _, cookie := range cookies {
		creds = append(creds, Credential{Name: cookie.Name, Value: cookie.Value})
	}
	return creds
}
