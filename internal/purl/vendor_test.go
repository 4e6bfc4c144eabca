package purl

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVendor(t *testing.T) {
	tests := []struct {
		name   string
		purl   string
		want   string
		wantOK bool
	}{
		{"maven namespace", "pkg:maven/org.example/lib@1.0", "org.example", true},
		{"no namespace", "pkg:npm/left-pad@1.0", "", false},
		{"encoded npm scope", "pkg:npm/%40angular/core@17.0.0", "angular", true},
		{"multi segment namespace", "pkg:golang/github.com/spf13/cobra@v1.10.2", "github.com/spf13", true},
		{"no version", "pkg:composer/monolog/monolog", "monolog", true},
		{"qualifiers ignored", "pkg:maven/org.apache.commons/commons-lang3@3.14.0?type=jar", "org.apache.commons", true},
		{"empty", "", "", false},
		{"missing scheme", "maven/org.example/lib@1.0", "", false},
		{"unencoded scope collapses", "pkg:npm/@angular/core@17.0.0", "", false},
		{"garbage", "pkg:", "", false},
		{"golang namespace keeps case", "pkg:golang/github.com/Azure/azure-sdk-for-go@v68.0.0", "github.com/Azure", true},
		{"encoded npm scope keeps case", "pkg:npm/%40Types/node@20.0.0", "Types", true},
		{"github namespace keeps case", "pkg:github/Microsoft/TypeScript@v5.0.0", "Microsoft", true},
		{"composer namespace keeps case", "pkg:composer/Symfony/console@6.0.0", "Symfony", true},
		{"maven namespace keeps case", "pkg:maven/Org.Example/lib@1.0", "Org.Example", true},
		{"subpath ignored", "pkg:golang/github.com/BurntSushi/toml#cmd/tomlv", "github.com/BurntSushi", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Vendor(tt.purl)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
			assert.NotContains(t, got, "@")
		})
	}
}
