package fetch

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetectPlatform(t *testing.T) {
	tests := []struct {
		url      string
		expected Platform
	}{
		{"https://job-boards.greenhouse.io/acme/jobs/7063751", PlatformGreenhouse},
		{"https://boards.greenhouse.io/company/jobs/123", PlatformGreenhouse},
		{"https://jobs.lever.co/company/job-id", PlatformLever},
		{"https://acme.wd5.myworkdayjobs.com/en-US/External", PlatformWorkday},
		{"https://jobs.ashbyhq.com/acme/123", PlatformAshby},
		{"https://notgreenhouse.io.example.com/jobs", PlatformUnknown},
		{"https://example.com/careers/42", PlatformUnknown},
		{"://bad", PlatformUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			assert.Equal(t, tt.expected, DetectPlatform(tt.url))
		})
	}
}

func TestContentSelectors_FallBackToGeneric(t *testing.T) {
	assert.Equal(t, JobPostingSelectors(), ContentSelectors(PlatformUnknown))
	assert.Contains(t, ContentSelectors(PlatformGreenhouse), ".job__description")
}

func TestNoiseSelectors_DoNotAliasCommon(t *testing.T) {
	gh := NoiseSelectors(PlatformGreenhouse)
	lever := NoiseSelectors(PlatformLever)

	assert.Contains(t, gh, "#usa_self_id_section")
	assert.NotContains(t, lever, "#usa_self_id_section")
	assert.Len(t, NoiseSelectors(PlatformUnknown), len(commonNoise))
}
