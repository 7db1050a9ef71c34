package config

import "strings"

const clientURLVar = "CLIENT_URL"

type Cors struct{}

var _ CorsConfig = Cors{}

type AllowedOrigins map[string]struct{}
type nullValue = struct{}

func (a AllowedOrigins) IsAllowedOrigin(origin string) bool {
	_, ok := a[origin]
	return ok
}

func (a AllowedOrigins) String() string {
	var origins []string
	for k := range a {
		origins = append(origins, k)
	}
	return strings.Join(origins, ", ")
}

// GetAllowedOrigins returns the single browser origin allowed to call the API.
func (Cors) GetAllowedOrigins() AllowedOrigins {
	return AllowedOrigins{GetEnv(clientURLVar, "http://localhost:3000"): nullValue{}}
}

func (Cors) GetAllowedMethods() string {
	return "GET, POST, PUT, DELETE"
}

func (Cors) GetAllowedHeaders() string {
	return "Content-Type, Authorization"
}
