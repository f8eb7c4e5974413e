package errors

import (
	stdErrors "errors"
	"fmt"
)

type Code string

const (
	CodeValidation   Code = "VALIDATION_ERROR"
	CodeUnauthorized Code = "UNAUTHORIZED"
	CodeForbidden    Code = "FORBIDDEN"
	CodeNotFound     Code = "NOT_FOUND"
	CodeRateLimit    Code = "RATE_LIMIT_EXCEEDED"
	CodeInternal     Code = "INTERNAL_ERROR"
	CodeDependency   Code = "DEPENDENCY_ERROR"

	// Video generation pipeline failures.
	CodeUpstreamFetch    Code = "UPSTREAM_FETCH_ERROR"
	CodeAuthExchange     Code = "AUTH_EXCHANGE_ERROR"
	CodeProviderRequest  Code = "PROVIDER_REQUEST_ERROR"
	CodeProviderProtocol Code = "PROVIDER_PROTOCOL_ERROR"
	CodeGenerationFailed Code = "GENERATION_FAILED"
	CodeContentPolicy    Code = "CONTENT_POLICY_ERROR"
	CodeNoResult         Code = "NO_RESULT_ERROR"
	CodeUnexpectedFormat Code = "UNEXPECTED_FORMAT_ERROR"
	CodeDownload         Code = "DOWNLOAD_ERROR"
	CodeStorage          Code = "STORAGE_ERROR"
	CodeLinkage          Code = "LINKAGE_ERROR"
	CodeTimeout          Code = "TIMEOUT_ERROR"
)

// Metadata describes how a code is surfaced to callers.
type Metadata struct {
	Retryable      bool
	PublicMessage  string
	ExposeMessage  bool
	DetailsAllowed bool
}

var metadataByCode = map[Code]Metadata{
	CodeValidation:       {PublicMessage: "validation failed", ExposeMessage: true, DetailsAllowed: true},
	CodeUnauthorized:     {PublicMessage: "Unauthorized", ExposeMessage: true},
	CodeForbidden:        {PublicMessage: "access denied", ExposeMessage: true},
	CodeNotFound:         {PublicMessage: "resource not found", ExposeMessage: true},
	CodeRateLimit:        {PublicMessage: "rate limit exceeded", ExposeMessage: true, Retryable: true},
	CodeInternal:         {PublicMessage: "internal server error", Retryable: true},
	CodeDependency:       {PublicMessage: "dependency unavailable", Retryable: true},
	CodeUpstreamFetch:    {PublicMessage: "failed to fetch source image", ExposeMessage: true},
	CodeAuthExchange:     {PublicMessage: "failed to authenticate with video provider", ExposeMessage: true},
	CodeProviderRequest:  {PublicMessage: "video provider rejected the request", ExposeMessage: true, Retryable: true},
	CodeProviderProtocol: {PublicMessage: "unexpected video provider response", ExposeMessage: true},
	CodeGenerationFailed: {PublicMessage: "video generation failed", ExposeMessage: true, Retryable: true},
	CodeContentPolicy:    {PublicMessage: "video blocked by safety filters", ExposeMessage: true},
	CodeNoResult:         {PublicMessage: "no video generated", ExposeMessage: true, Retryable: true},
	CodeUnexpectedFormat: {PublicMessage: "unexpected video format", ExposeMessage: true},
	CodeDownload:         {PublicMessage: "failed to download generated video", ExposeMessage: true, Retryable: true},
	CodeStorage:          {PublicMessage: "failed to store video", ExposeMessage: true, Retryable: true},
	CodeLinkage:          {PublicMessage: "failed to link video to dream", ExposeMessage: true},
	CodeTimeout:          {PublicMessage: "video generation timed out", ExposeMessage: true, Retryable: true},
}

func MetadataFor(code Code) Metadata {
	if meta, ok := metadataByCode[code]; ok {
		return meta
	}
	return metadataByCode[CodeInternal]
}

type Error struct {
	code    Code
	message string
	details any
	cause   error
}

func New(code Code, message string) *Error {
	return &Error{code: code, message: message}
}

func Wrap(code Code, err error, message string) *Error {
	if err == nil {
		return New(code, message)
	}
	return &Error{code: code, message: message, cause: err}
}

func (e *Error) Code() Code {
	if e == nil {
		return CodeInternal
	}
	return e.code
}

func (e *Error) Message() string {
	if e == nil {
		return ""
	}
	return e.message
}

func (e *Error) Details() any {
	if e == nil {
		return nil
	}
	return e.details
}

func (e *Error) WithDetails(details any) *Error {
	if e == nil {
		return nil
	}
	e.details = details
	return e
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.code, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.code, e.message)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

func As(err error) *Error {
	if err == nil {
		return nil
	}
	var typed *Error
	if stdErrors.As(err, &typed) {
		return typed
	}
	return nil
}

// CodeOf returns the code of the outermost typed error, or CodeInternal.
func CodeOf(err error) Code {
	if typed := As(err); typed != nil {
		return typed.Code()
	}
	return CodeInternal
}

// IsCode reports whether err carries the given code.
func IsCode(err error, code Code) bool {
	return err != nil && CodeOf(err) == code
}
