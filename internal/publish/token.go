package publish

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
)

// TokenSourceType identifies where an access token is read from.
type TokenSourceType string

const (
	// TokenSourceTypeEnvironment reads the token from an environment variable.
	TokenSourceTypeEnvironment TokenSourceType = "env"
	// TokenSourceTypeFile reads the token from a file.
	TokenSourceTypeFile TokenSourceType = "file"
)

const (
	tokenSourceSeparatorConstant         = ":"
	tokenSourceMissingMessageConstant    = "token source must be provided"
	tokenSourceUnsupportedTemplate       = "unsupported token source type %q"
	tokenSourceReferenceMissingTemplate  = "token source %q requires a reference"
	environmentTokenMissingTemplate      = "environment variable %s is not set"
	fileTokenReadTemplate                = "read token file %s: %w"
	tokenEmptyTemplateConstant           = "token from %s is empty"
	unknownTokenSourceTypeErrorTemplate  = "unknown token source type %q"
	tokenSourceDescriptionTemplate       = "%s:%s"
	tokenResolutionErrorTemplateConstant = "%w: %w"
	tokenResolutionPlainTemplateConstant = "%w: %s"
)

var (
	// ErrTokenSourceInvalid indicates a token source could not be parsed.
	ErrTokenSourceInvalid = errors.New("invalid token source")
	// ErrTokenUnavailable indicates the configured token source yielded no token.
	ErrTokenUnavailable = errors.New("token unavailable")
)

// TokenSourceConfiguration describes a parsed token source.
type TokenSourceConfiguration struct {
	Type      TokenSourceType
	Reference string
}

// String renders the source in its configuration form.
func (configuration TokenSourceConfiguration) String() string {
	return fmt.Sprintf(tokenSourceDescriptionTemplate, configuration.Type, configuration.Reference)
}

// ParseTokenSource parses "env:NAME", "file:/path" or a bare environment variable name.
func ParseTokenSource(rawValue string) (TokenSourceConfiguration, error) {
	trimmedValue := strings.TrimSpace(rawValue)
	if len(trimmedValue) == 0 {
		return TokenSourceConfiguration{}, fmt.Errorf(tokenResolutionPlainTemplateConstant, ErrTokenSourceInvalid, tokenSourceMissingMessageConstant)
	}

	sourceType, reference, hasSeparator := strings.Cut(trimmedValue, tokenSourceSeparatorConstant)
	if !hasSeparator {
		return TokenSourceConfiguration{Type: TokenSourceTypeEnvironment, Reference: trimmedValue}, nil
	}

	parsedType := TokenSourceType(strings.ToLower(strings.TrimSpace(sourceType)))
	switch parsedType {
	case TokenSourceTypeEnvironment, TokenSourceTypeFile:
	default:
		return TokenSourceConfiguration{}, fmt.Errorf(tokenResolutionPlainTemplateConstant, ErrTokenSourceInvalid, fmt.Sprintf(tokenSourceUnsupportedTemplate, sourceType))
	}

	trimmedReference := strings.TrimSpace(reference)
	if len(trimmedReference) == 0 {
		return TokenSourceConfiguration{}, fmt.Errorf(tokenResolutionPlainTemplateConstant, ErrTokenSourceInvalid, fmt.Sprintf(tokenSourceReferenceMissingTemplate, trimmedValue))
	}
	return TokenSourceConfiguration{Type: parsedType, Reference: trimmedReference}, nil
}

// EnvironmentLookup matches os.LookupEnv.
type EnvironmentLookup func(key string) (string, bool)

// FileReader matches os.ReadFile.
type FileReader func(path string) ([]byte, error)

// TokenResolver turns a token source into a token value.
type TokenResolver interface {
	ResolveToken(executionContext context.Context, source TokenSourceConfiguration) (string, error)
}

type tokenResolver struct {
	environmentLookup EnvironmentLookup
	fileReader        FileReader
}

// NewTokenResolver constructs a resolver. Nil collaborators fall back to the process environment and file system.
func NewTokenResolver(environmentLookup EnvironmentLookup, fileReader FileReader) TokenResolver {
	if environmentLookup == nil {
		environmentLookup = os.LookupEnv
	}
	if fileReader == nil {
		fileReader = os.ReadFile
	}
	return tokenResolver{environmentLookup: environmentLookup, fileReader: fileReader}
}

// ResolveToken reads and trims the token. Missing or blank tokens wrap ErrTokenUnavailable.
func (resolver tokenResolver) ResolveToken(_ context.Context, source TokenSourceConfiguration) (string, error) {
	var rawToken string
	switch source.Type {
	case TokenSourceTypeEnvironment:
		value, found := resolver.environmentLookup(source.Reference)
		if !found {
			return "", fmt.Errorf(tokenResolutionPlainTemplateConstant, ErrTokenUnavailable, fmt.Sprintf(environmentTokenMissingTemplate, source.Reference))
		}
		rawToken = value
	case TokenSourceTypeFile:
		content, readError := resolver.fileReader(source.Reference)
		if readError != nil {
			return "", fmt.Errorf(tokenResolutionErrorTemplateConstant, ErrTokenUnavailable, fmt.Errorf(fileTokenReadTemplate, source.Reference, readError))
		}
		rawToken = string(content)
	default:
		return "", fmt.Errorf(tokenResolutionPlainTemplateConstant, ErrTokenSourceInvalid, fmt.Sprintf(unknownTokenSourceTypeErrorTemplate, source.Type))
	}

	token := strings.TrimSpace(rawToken)
	if len(token) == 0 {
		return "", fmt.Errorf(tokenResolutionPlainTemplateConstant, ErrTokenUnavailable, fmt.Sprintf(tokenEmptyTemplateConstant, source))
	}
	return token, nil
}
