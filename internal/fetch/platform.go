package fetch

import (
	"net/url"
	"strings"
)

// Platform is a known applicant tracking system.
type Platform string

const (
	PlatformGreenhouse Platform = "greenhouse"
	PlatformLever      Platform = "lever"
	PlatformWorkday    Platform = "workday"
	PlatformAshby      Platform = "ashby"
	PlatformUnknown    Platform = "unknown"
)

// platformHosts maps host suffixes to platforms.
var platformHosts = []struct {
	suffix   string
	platform Platform
}{
	{"greenhouse.io", PlatformGreenhouse},
	{"lever.co", PlatformLever},
	{"myworkdayjobs.com", PlatformWorkday},
	{"workday.com", PlatformWorkday},
	{"ashbyhq.com", PlatformAshby},
}

// DetectPlatform identifies the job board behind a posting URL.
func DetectPlatform(rawURL string) Platform {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return PlatformUnknown
	}
	host := strings.ToLower(parsed.Hostname())
	for _, h := range platformHosts {
		if host == h.suffix || strings.HasSuffix(host, "."+h.suffix) {
			return h.platform
		}
	}
	return PlatformUnknown
}

// JobPostingSelectors are tried in order on pages from unknown boards.
func JobPostingSelectors() []string {
	return []string{
		".job-description",
		"#job-description",
		".job-content",
		".posting-content",
		".job-details",
		"[data-testid='job-description']",
		"main",
		"article",
		"#content",
	}
}

// ContentSelectors returns the description selectors for a platform.
func ContentSelectors(p Platform) []string {
	switch p {
	case PlatformGreenhouse:
		return []string{".job__description.body", ".job__description", "#content", ".job-post-container"}
	case PlatformLever:
		return []string{".posting-page", ".posting-description", ".content"}
	case PlatformWorkday:
		return []string{"[data-automation-id='jobPostingDescription']", "[data-automation-id='jobDescription']", ".job-description"}
	case PlatformAshby:
		return []string{".ashby-job-posting-right-pane", "._descriptionText_oj0x8_198", "main"}
	default:
		return JobPostingSelectors()
	}
}

// commonNoise is stripped from every posting: application forms, EEO
// statements, share buttons and cookie banners.
var commonNoise = []string{
	"form", "#application-form", ".application-form", ".apply-button-container",
	".eeo-statement", ".eeo-section", ".voluntary-disclosure", ".self-identification",
	".social-share", ".share-buttons",
	".cookie-banner", ".cookie-consent", ".gdpr-notice",
}

// NoiseSelectors returns the elements removed before extraction.
func NoiseSelectors(p Platform) []string {
	noise := append([]string(nil), commonNoise...)
	switch p {
	case PlatformGreenhouse:
		noise = append(noise, ".application--wrapper", ".voluntary-self-id", "#usa_self_id_section")
	case PlatformLever:
		noise = append(noise, ".apply-section", ".posting-apply")
	case PlatformWorkday:
		noise = append(noise, "[data-automation-id='applyButton']")
	}
	return noise
}
