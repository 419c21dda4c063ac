package tracing

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.opentelemetry.io/otel/attribute"
)

func TestSafeAttributesDropsPersonalData(t *testing.T) {
	attrs := SafeAttributes(
		attribute.String("http.route", "/api/me/entitlements"),
		attribute.String("Email", "owner@example.com"),
		attribute.String("token", "abc"),
	)
	assert.Len(t, attrs, 1)
	assert.Equal(t, attribute.Key("http.route"), attrs[0].Key)
}

func TestSafeErrorTruncates(t *testing.T) {
	assert.Nil(t, SafeError(nil))
	assert.Equal(t, "first", SafeError(errors.New("first\nsecond")).Error())
	long := strings.Repeat("x", 400)
	assert.Len(t, SafeError(errors.New(long)).Error(), 256)
}
