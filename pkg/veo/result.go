package veo

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	pkgerrors "github.com/lucidrepo/lucid-backend/pkg/errors"
)

// Sample is the first generated video of a finished operation. It is either
// an InlineSample or a RemoteSample.
type Sample interface {
	isSample()
}

// InlineSample carries the decoded video bytes.
type InlineSample struct {
	Data     []byte
	MimeType string
}

// RemoteSample points at an object that must be fetched with the bearer token.
type RemoteSample struct {
	URI      string
	MimeType string
}

func (InlineSample) isSample() {}
func (RemoteSample) isSample() {}

type videoFields struct {
	BytesBase64Encoded string `json:"bytesBase64Encoded"`
	GcsURI             string `json:"gcsUri"`
	URI                string `json:"uri"`
	MimeType           string `json:"mimeType"`
}

type rawSample struct {
	videoFields
	Video *videoFields `json:"video"`
}

type rawResult struct {
	Videos                []rawSample `json:"videos"`
	GeneratedSamples      []rawSample `json:"generatedSamples"`
	RaiMediaFilteredCount int         `json:"raiMediaFilteredCount"`
	GenerateVideoResponse *struct {
		GeneratedSamples      []rawSample `json:"generatedSamples"`
		RaiMediaFilteredCount int         `json:"raiMediaFilteredCount"`
	} `json:"generateVideoResponse"`
}

func (r rawResult) samples() []rawSample {
	if len(r.Videos) > 0 {
		return r.Videos
	}
	if len(r.GeneratedSamples) > 0 {
		return r.GeneratedSamples
	}
	if r.GenerateVideoResponse != nil {
		return r.GenerateVideoResponse.GeneratedSamples
	}
	return nil
}

func (r rawResult) filteredCount() int {
	if r.RaiMediaFilteredCount > 0 {
		return r.RaiMediaFilteredCount
	}
	if r.GenerateVideoResponse != nil {
		return r.GenerateVideoResponse.RaiMediaFilteredCount
	}
	return 0
}

// ParseResult extracts the first sample from a completed operation response.
func ParseResult(response json.RawMessage) (Sample, error) {
	var keys []string
	var result rawResult
	if len(response) > 0 && string(response) != "null" {
		var top map[string]json.RawMessage
		if err := json.Unmarshal(response, &top); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeUnexpectedFormat, err, "Unexpected video response format")
		}
		for k := range top {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		if err := json.Unmarshal(response, &result); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeUnexpectedFormat, err, "Unexpected video response format")
		}
	}

	samples := result.samples()
	if len(samples) == 0 {
		if n := result.filteredCount(); n > 0 {
			return nil, pkgerrors.New(pkgerrors.CodeContentPolicy,
				"Video was blocked by safety filters, try a gentler prompt").
				WithDetails(map[string]any{"rai_media_filtered_count": n})
		}
		listed := "none"
		if len(keys) > 0 {
			listed = strings.Join(keys, ", ")
		}
		return nil, pkgerrors.New(pkgerrors.CodeNoResult,
			fmt.Sprintf("No video was generated (response keys: %s)", listed)).
			WithDetails(map[string]any{"response_keys": keys})
	}

	return sampleFrom(samples[0])
}

func sampleFrom(s rawSample) (Sample, error) {
	levels := []videoFields{s.videoFields}
	if s.Video != nil {
		levels = append(levels, *s.Video)
	}

	for _, v := range levels {
		if v.BytesBase64Encoded == "" {
			continue
		}
		data, err := base64.StdEncoding.DecodeString(v.BytesBase64Encoded)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeUnexpectedFormat, err, "Generated video is not valid base64")
		}
		return InlineSample{Data: data, MimeType: v.MimeType}, nil
	}
	for _, v := range levels {
		if uri := firstNonEmpty(v.GcsURI, v.URI); uri != "" {
			return RemoteSample{URI: uri, MimeType: v.MimeType}, nil
		}
	}
	return nil, pkgerrors.New(pkgerrors.CodeUnexpectedFormat, "Unexpected video format in provider response")
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
