package branches

import (
	"strings"
)

const (
	defaultMasterBranchNameConstant  = "master"
	defaultMasterAliasConstant       = "main"
	defaultDevelopBranchNameConstant = "develop"
	defaultReleasePrefixConstant     = "release"
	defaultHotfixPrefixConstant      = "hotfix"
	branchSeparatorConstant          = "/"
)

// RoleKind enumerates the Gitflow branch roles.
type RoleKind int

const (
	// RoleOther marks any branch outside the Gitflow naming scheme.
	RoleOther RoleKind = iota
	// RoleMaster marks the production branch.
	RoleMaster
	// RoleDevelop marks the integration branch.
	RoleDevelop
	// RoleRelease marks a release branch.
	RoleRelease
	// RoleHotfix marks a hotfix branch.
	RoleHotfix
)

var roleKindNames = map[RoleKind]string{
	RoleOther:   "other",
	RoleMaster:  "master",
	RoleDevelop: "develop",
	RoleRelease: "release",
	RoleHotfix:  "hotfix",
}

// String returns the lowercase role name.
func (kind RoleKind) String() string {
	if name, known := roleKindNames[kind]; known {
		return name
	}
	return roleKindNames[RoleOther]
}

// BranchRole is the classification of a single branch name.
type BranchRole struct {
	Kind RoleKind
	// Identifier is the text after the release or hotfix token. Empty for other roles.
	Identifier string
	Name       string
}

// IsWorkflowBranch reports whether the role belongs to a release or hotfix branch.
func (role BranchRole) IsWorkflowBranch() bool {
	return role.Kind == RoleRelease || role.Kind == RoleHotfix
}

// BranchNames configures the names and prefixes the classifier recognizes.
type BranchNames struct {
	Master        string   `mapstructure:"master"`
	MasterAliases []string `mapstructure:"master_aliases"`
	Develop       string   `mapstructure:"develop"`
	ReleasePrefix string   `mapstructure:"release_prefix"`
	HotfixPrefix  string   `mapstructure:"hotfix_prefix"`
}

// DefaultBranchNames returns the conventional Gitflow names.
func DefaultBranchNames() BranchNames {
	return BranchNames{
		Master:        defaultMasterBranchNameConstant,
		MasterAliases: []string{defaultMasterAliasConstant},
		Develop:       defaultDevelopBranchNameConstant,
		ReleasePrefix: defaultReleasePrefixConstant,
		HotfixPrefix:  defaultHotfixPrefixConstant,
	}
}

// Sanitize trims the configured names and substitutes defaults for empty values.
func (names BranchNames) Sanitize() BranchNames {
	defaults := DefaultBranchNames()
	sanitized := BranchNames{
		Master:        strings.TrimSpace(names.Master),
		Develop:       strings.TrimSpace(names.Develop),
		ReleasePrefix: strings.Trim(strings.TrimSpace(names.ReleasePrefix), branchSeparatorConstant),
		HotfixPrefix:  strings.Trim(strings.TrimSpace(names.HotfixPrefix), branchSeparatorConstant),
	}
	if len(sanitized.Master) == 0 {
		sanitized.Master = defaults.Master
	}
	if len(sanitized.Develop) == 0 {
		sanitized.Develop = defaults.Develop
	}
	if len(sanitized.ReleasePrefix) == 0 {
		sanitized.ReleasePrefix = defaults.ReleasePrefix
	}
	if len(sanitized.HotfixPrefix) == 0 {
		sanitized.HotfixPrefix = defaults.HotfixPrefix
	}

	if names.MasterAliases == nil {
		sanitized.MasterAliases = defaults.MasterAliases
		return sanitized
	}
	for _, alias := range names.MasterAliases {
		trimmedAlias := strings.TrimSpace(alias)
		if len(trimmedAlias) == 0 || trimmedAlias == sanitized.Master {
			continue
		}
		sanitized.MasterAliases = append(sanitized.MasterAliases, trimmedAlias)
	}
	return sanitized
}

// Classifier maps branch names to Gitflow roles.
type Classifier struct {
	names BranchNames
}

// NewClassifier builds a classifier for the provided names.
func NewClassifier(names BranchNames) Classifier {
	return Classifier{names: names.Sanitize()}
}

// Names exposes the sanitized names used by the classifier.
func (classifier Classifier) Names() BranchNames {
	return classifier.names
}

// Classify derives the role of a branch from its name alone.
// Hotfix is checked before release, so "release/hotfix/1.0.0" is a hotfix branch.
func (classifier Classifier) Classify(branchName string) BranchRole {
	names := classifier.names
	if len(names.Master) == 0 {
		names = DefaultBranchNames()
	}

	if identifier, found := identifierAfterToken(branchName, names.HotfixPrefix); found {
		return BranchRole{Kind: RoleHotfix, Identifier: identifier, Name: branchName}
	}
	if identifier, found := identifierAfterToken(branchName, names.ReleasePrefix); found {
		return BranchRole{Kind: RoleRelease, Identifier: identifier, Name: branchName}
	}
	if branchName == names.Master {
		return BranchRole{Kind: RoleMaster, Name: branchName}
	}
	for _, alias := range names.MasterAliases {
		if branchName == alias {
			return BranchRole{Kind: RoleMaster, Name: branchName}
		}
	}
	if branchName == names.Develop {
		return BranchRole{Kind: RoleDevelop, Name: branchName}
	}
	return BranchRole{Kind: RoleOther, Name: branchName}
}

// ReleaseBranchName renders the release branch name for a version.
func (classifier Classifier) ReleaseBranchName(version string) string {
	return classifier.names.ReleasePrefix + branchSeparatorConstant + version
}

// HotfixBranchName renders the hotfix branch name for a version.
func (classifier Classifier) HotfixBranchName(version string) string {
	return classifier.names.HotfixPrefix + branchSeparatorConstant + version
}

func identifierAfterToken(branchName string, prefix string) (string, bool) {
	token := prefix + branchSeparatorConstant
	tokenIndex := strings.Index(branchName, token)
	if tokenIndex < 0 {
		return "", false
	}
	return branchName[tokenIndex+len(token):], true
}
