package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVersionWithCommit(t *testing.T) {
	assert.Equal(t, Version, VersionWithCommit(""))
	assert.Equal(t, Version, VersionWithCommit("abc"))
	assert.Equal(t, Version+"-0123abcd", VersionWithCommit("0123abcdef99"))
}

func TestPrintVersion(t *testing.T) {
	var buf bytes.Buffer
	printVersion(&buf, "")
	out := buf.String()
	assert.Contains(t, out, "guardian "+Version)
	assert.Contains(t, out, "registry=v2")
	assert.Contains(t, out, "relay=v1")
	assert.Contains(t, out, "GuardianPaymentEngine v1")
	assert.NotContains(t, out, "compliance")
}
