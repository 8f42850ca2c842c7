package discover

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"

	"collabtext/pkg/discovery"
)

func TestPrint(t *testing.T) {
	var out bytes.Buffer
	Print(&out, nil)
	assert.Equal(t, "No servers found.\n", out.String())

	out.Reset()
	Print(&out, []discovery.Server{
		{Instance: "CollabText-desk", Origin: "http://192.168.1.20:8000"},
		{Instance: "lab", Origin: "https://[fe80::1]:8443"},
	})
	assert.Equal(t, "INSTANCE         ORIGIN\n"+
		"CollabText-desk  http://192.168.1.20:8000\n"+
		"lab              https://[fe80::1]:8443\n", out.String())
}
