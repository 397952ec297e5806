package analytics

import (
	"fmt"
	"strings"
)

// InstallType classifies how the running app instance was obtained
type InstallType string

const (
	InstallTypeOrganic     InstallType = "organic"
	InstallTypePaid        InstallType = "paid"
	InstallTypeBeta        InstallType = "beta"
	InstallTypeDevelopment InstallType = "development"
)

// AllInstallTypes returns every known install type
func AllInstallTypes() []InstallType {
	return []InstallType{
		InstallTypeOrganic,
		InstallTypePaid,
		InstallTypeBeta,
		InstallTypeDevelopment,
	}
}

// ParseInstallType parses s case-insensitively
func ParseInstallType(s string) (InstallType, error) {
	candidate := InstallType(strings.ToLower(strings.TrimSpace(s)))
	for _, it := range AllInstallTypes() {
		if it == candidate {
			return it, nil
		}
	}
	return "", fmt.Errorf("unknown install type: %q", s)
}

// ParseInstallTypes parses a comma separated list. An empty list yields all install types.
func ParseInstallTypes(s string) ([]InstallType, error) {
	if strings.TrimSpace(s) == "" {
		return AllInstallTypes(), nil
	}

	var types []InstallType
	for _, part := range strings.Split(s, ",") {
		it, err := ParseInstallType(part)
		if err != nil {
			return nil, err
		}
		types = append(types, it)
	}
	return types, nil
}

func containsInstallType(types []InstallType, it InstallType) bool {
	for _, candidate := range types {
		if candidate == it {
			return true
		}
	}
	return false
}
