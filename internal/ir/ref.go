package ir

import (
	"fmt"
	"strings"
)

// Layer references come in two forms: a literal ARN known at declaration
// time, or a ptr:// token naming a layer node whose ARN only exists after
// the owning stack deploys.
//
//	ptr://shared/NodeDeps/arn -> stack "shared", logical ID "NodeDeps"

const tokenPrefix = "ptr://"

// LayerToken builds the unresolved reference for a layer node.
func LayerToken(stack, logicalID string) string {
	return fmt.Sprintf("%s%s/%s/arn", tokenPrefix, stack, logicalID)
}

// IsToken reports whether ref is an unresolved ptr:// reference.
func IsToken(ref string) bool {
	return strings.HasPrefix(ref, tokenPrefix)
}

// ParseToken splits a ptr:// reference into its owning stack and logical ID.
func ParseToken(ref string) (stack, logicalID string, ok bool) {
	if !IsToken(ref) {
		return "", "", false
	}
	parts := strings.SplitN(ref[len(tokenPrefix):], "/", 3)
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return "", "", false
	}
	return parts[0], parts[1], true
}
