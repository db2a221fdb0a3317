package uri

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEncodeComponent(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "plain", in: "report.pdf", want: "report.pdf"},
		{name: "space", in: "my file.txt", want: "my%20file.txt"},
		{name: "reserved marks kept", in: "a!b~c*d'e(f)g", want: "a!b~c*d'e(f)g"},
		{name: "slash and query", in: "a/b?c=d&e", want: "a%2Fb%3Fc%3Dd%26e"},
		{name: "utf8", in: "文件.png", want: "%E6%96%87%E4%BB%B6.png"},
		{name: "empty", in: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, EncodeComponent(tt.in))
		})
	}
}
