package mqtt

import (
	"fmt"
	"strings"
)

// DefaultTopicPrefix is used when the configured prefix is empty.
const DefaultTopicPrefix = "cogweb"

// Topics builds cogweb MQTT topics under a common prefix.
// Using these helpers keeps publishers and subscribers in agreement.
//
//	topics := mqtt.NewTopics("cogweb")
//	topics.AtomCreated("ConceptNode")
//	// Returns: "cogweb/atom/created/ConceptNode"
type Topics struct {
	prefix string
}

// NewTopics returns topic builders rooted at prefix. Surrounding slashes are
// trimmed; an empty prefix falls back to DefaultTopicPrefix.
func NewTopics(prefix string) Topics {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		prefix = DefaultTopicPrefix
	}
	return Topics{prefix: prefix}
}

func (t Topics) root() string {
	if t.prefix == "" {
		return DefaultTopicPrefix
	}
	return t.prefix
}

// AtomCreated returns the topic for newly created atoms of a type.
//
// Example: cogweb/atom/created/ConceptNode
func (t Topics) AtomCreated(atomType string) string {
	return fmt.Sprintf("%s/atom/created/%s", t.root(), atomType)
}

// SystemStatus returns the retained online/offline status topic.
//
// Example: cogweb/system/status
func (t Topics) SystemStatus() string {
	return fmt.Sprintf("%s/system/status", t.root())
}

// Request returns the topic on which commands for an operation are received.
//
// Example: cogweb/request/get-atom
func (t Topics) Request(operation string) string {
	return fmt.Sprintf("%s/request/%s", t.root(), operation)
}

// Response returns the topic on which command outcomes are published.
//
// Example: cogweb/response/get-atom
func (t Topics) Response(operation string) string {
	return fmt.Sprintf("%s/response/%s", t.root(), operation)
}

// OperationFromRequest extracts the operation name from a request topic.
// It reports false for topics outside the request hierarchy.
func (t Topics) OperationFromRequest(topic string) (string, bool) {
	op, ok := strings.CutPrefix(topic, t.root()+"/request/")
	if !ok || op == "" || strings.Contains(op, "/") {
		return "", false
	}
	return op, true
}

// AllRequests returns the wildcard the command ingress subscribes to.
//
// Pattern: cogweb/request/+
func (t Topics) AllRequests() string {
	return fmt.Sprintf("%s/request/+", t.root())
}
