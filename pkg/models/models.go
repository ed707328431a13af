package models

import (
	"strings"

	"github.com/google/uuid"
)

// NodeType classifies a vertex in the vocabulary graph
type NodeType string

const (
	NodeWord     NodeType = "word"
	NodeRoman    NodeType = "romanized"
	NodeForm     NodeType = "form"
	NodePOS      NodeType = "pos"
	NodeLanguage NodeType = "language"
	NodeText     NodeType = "text"
)

// NodeTypeList contains all valid node types
var NodeTypeList = []NodeType{
	NodeWord, NodeRoman, NodeForm, NodePOS, NodeLanguage, NodeText,
}

// Valid reports whether t is a known node type
func (t NodeType) Valid() bool {
	for _, known := range NodeTypeList {
		if t == known {
			return true
		}
	}
	return false
}

// EdgeType classifies a directed relation between two nodes
type EdgeType string

const (
	EdgeMeans        EdgeType = "means"
	EdgeAntonym      EdgeType = "antonym"
	EdgeIs           EdgeType = "is"
	EdgeIsPOS        EdgeType = "is:pos"
	EdgeIsLanguage   EdgeType = "is:language"
	EdgeIsForm       EdgeType = "is:form"
	EdgeRomanization EdgeType = "romanize"
)

// EdgeTypeList contains all valid edge types
var EdgeTypeList = []EdgeType{
	EdgeMeans, EdgeAntonym, EdgeIs, EdgeIsPOS,
	EdgeIsLanguage, EdgeIsForm, EdgeRomanization,
}

// Valid reports whether t is a known edge type
func (t EdgeType) Valid() bool {
	for _, known := range EdgeTypeList {
		if t == known {
			return true
		}
	}
	return false
}

// TwoWay reports whether the relation is conceptually symmetric.
// The store treats every edge as directed; callers of edge creation
// are expected to insert both directions for two-way types.
func (t EdgeType) TwoWay() bool {
	switch t {
	case EdgeMeans, EdgeAntonym, EdgeIsForm:
		return true
	}
	return false
}

// Node is a graph vertex. CreatedAt is unix milliseconds.
type Node struct {
	ID        string   `json:"id"`
	Text      string   `json:"text"`
	Type      NodeType `json:"type"`
	Forms     []string `json:"forms,omitempty"`
	CreatedAt int64    `json:"createdAt"`
}

// Edge is a directed, typed relation between two node ids
type Edge struct {
	ID        string   `json:"id"`
	Type      EdgeType `json:"type"`
	SourceID  string   `json:"sourceId"`
	TargetID  string   `json:"targetId"`
	CreatedAt int64    `json:"createdAt"`
}

// NodeAnnotation is an optional free-text sidecar keyed by node id.
// Absence of a row means "no note"; empty notes are never stored.
type NodeAnnotation struct {
	ID   string `json:"id"`
	Note string `json:"note"`
}

// LinkedNode is a neighbor node enriched with the edge that connected it
type LinkedNode struct {
	Node
	LinkedEdgeID  string   `json:"linkedEdgeId"`
	EdgeType      EdgeType `json:"edgeType"`
	EdgeCreatedAt int64    `json:"edgeCreatedAt"`
}

// NodeWithRelation is a node plus its neighbor and connecting edge ids
type NodeWithRelation struct {
	Node
	NeighborsNodeID []string `json:"neighborsNodeId"`
	ConnectedEdgeID []string `json:"connectedEdgeId"`
}

// DisplayLink is the edge shape consumed by the rendering collaborator
type DisplayLink struct {
	ID     string   `json:"id"`
	Source string   `json:"source"`
	Target string   `json:"target"`
	Type   EdgeType `json:"type"`
}

// DisplayGraph is the full visible graph: every edge plus every node
// referenced by at least one edge. Nodes with zero incident edges are
// invisible on the canvas and never appear here.
type DisplayGraph struct {
	Nodes []Node        `json:"nodes"`
	Links []DisplayLink `json:"links"`
}

// NodePatch is a closed set of single-field node mutations. Only the
// fields enumerated here are mutable after creation.
type NodePatch interface {
	PatchField() string
}

// TextPatch replaces a node's display text
type TextPatch string

// PatchField returns the mutated field name
func (TextPatch) PatchField() string { return "text" }

// FormsPatch replaces a node's alternate word-form list
type FormsPatch []string

// PatchField returns the mutated field name
func (FormsPatch) PatchField() string { return "forms" }

// NewID generates a short opaque identifier for nodes and edges
func NewID() string {
	return uuid.NewString()[:8]
}

// Sanitize strips characters with HTML injection risk from display
// text and trims surrounding whitespace
func Sanitize(text string) string {
	return strings.TrimSpace(strings.Map(func(r rune) rune {
		switch r {
		case '<', '>', '&', '"', '\'', '`':
			return -1
		}
		return r
	}, text))
}

// AllLanguages is the canonical reference list of language names.
// Changing this list triggers the reference-data reset on Init.
var AllLanguages = []string{
	"Thai", "English", "Chinese", "Japanese", "German", "French", "Korean", "Hebrew",
}

// AllPOS is the canonical reference list of part-of-speech tags
var AllPOS = []string{
	"Noun", "Pronoun", "Verb", "Adjective",
	"Adverb", "Preposition", "Conjuction", "Determiner",
}
