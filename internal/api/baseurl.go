package api

import (
	"net/http/cookiejar"
	"strings"
)

const devBackendPort = "3000"

// ResolveBaseURL reproduce la resolución de origen del backend:
// un origen configurado explícitamente gana; páginas servidas desde el
// filesystem caen al backend local de desarrollo; un frontend local en
// otro puerto asume backend en el puerto fijo; si no, mismo origen.
func ResolveBaseURL(explicit, pageScheme, pageHost, pagePort string) string {
	if v := strings.TrimRight(strings.TrimSpace(explicit), "/"); v != "" {
		return v
	}
	if pageScheme == "file" {
		return "http://localhost:" + devBackendPort
	}
	if pagePort != "" && pagePort != devBackendPort {
		return pageScheme + "://" + pageHost + ":" + devBackendPort
	}
	if pagePort != "" {
		return pageScheme + "://" + pageHost + ":" + pagePort
	}
	return pageScheme + "://" + pageHost
}

func newCookieJar() *cookiejar.Jar {
	jar, _ := cookiejar.New(nil)
	return jar
}
