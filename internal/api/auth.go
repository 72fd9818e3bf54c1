package api

import (
	"crypto/subtle"
	"net/http"

	"github.com/AaronLay10/lorecrafter/internal/config"
)

// Role represents an authorization role.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleOperator Role = "operator"
)

// Auth guards the operational endpoints with basic auth. A nil or disabled
// Auth grants admin to everyone.
type Auth struct {
	adminUser    string
	adminPass    string
	operatorUser string
	operatorPass string
}

// AuthFromEnv reads LORECRAFTER_{ADMIN,OPERATOR}_{USER,PASS}, each with the
// *_FILE variant. Auth is enabled only when admin credentials are set.
func AuthFromEnv() (*Auth, error) {
	a := &Auth{}
	for name, dest := range map[string]*string{
		"LORECRAFTER_ADMIN_USER":    &a.adminUser,
		"LORECRAFTER_ADMIN_PASS":    &a.adminPass,
		"LORECRAFTER_OPERATOR_USER": &a.operatorUser,
		"LORECRAFTER_OPERATOR_PASS": &a.operatorPass,
	} {
		v, err := config.ResolveSecret(name)
		if err != nil {
			return nil, err
		}
		*dest = v
	}
	return a, nil
}

// NewAuth builds an Auth from explicit credentials.
func NewAuth(adminUser, adminPass, operatorUser, operatorPass string) *Auth {
	return &Auth{
		adminUser:    adminUser,
		adminPass:    adminPass,
		operatorUser: operatorUser,
		operatorPass: operatorPass,
	}
}

func (a *Auth) Enabled() bool {
	return a != nil && a.adminUser != "" && a.adminPass != ""
}

// authenticate returns the caller's role, or "" for bad credentials.
func (a *Auth) authenticate(r *http.Request) Role {
	if !a.Enabled() {
		return RoleAdmin
	}

	user, pass, ok := r.BasicAuth()
	if !ok {
		return ""
	}
	if secureCompare(user, a.adminUser) && secureCompare(pass, a.adminPass) {
		return RoleAdmin
	}
	if a.operatorUser != "" && a.operatorPass != "" &&
		secureCompare(user, a.operatorUser) && secureCompare(pass, a.operatorPass) {
		return RoleOperator
	}
	return ""
}

func secureCompare(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

func requireAuth(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", `Basic realm="LoreCrafter"`)
	http.Error(w, "Unauthorized", http.StatusUnauthorized)
}

// RequireRole wraps a handler and requires one of the specified roles.
func (a *Auth) RequireRole(handler http.HandlerFunc, allowedRoles ...Role) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		role := a.authenticate(r)
		if role == "" {
			requireAuth(w)
			return
		}
		for _, allowed := range allowedRoles {
			if role == allowed {
				handler(w, r)
				return
			}
		}
		http.Error(w, "Forbidden", http.StatusForbidden)
	}
}

func (a *Auth) RequireAnyRole(handler http.HandlerFunc) http.HandlerFunc {
	return a.RequireRole(handler, RoleAdmin, RoleOperator)
}

func (a *Auth) RequireAdmin(handler http.HandlerFunc) http.HandlerFunc {
	return a.RequireRole(handler, RoleAdmin)
}
