// Package livetree reconciles server-rendered virtual tree snapshots
// into minimal ordered patch lists and, alongside each diff, learns
// parameterized patch templates so that future state changes can be
// answered from a per-session prediction cache before the next render
// completes.
//
// Hosts create one Engine per process area and one Session per
// connected client:
//
//	engine, _ := livetree.NewEngine()
//	defer engine.Close()
//
//	sess, _ := engine.NewSession()
//	result, _ := sess.Reconcile("counter", oldTree, newTree, changes)
//	// ship result.Patches; the cache now predicts repeat changes
//
// The vdom vocabulary (nodes, paths, patches, templates) is re-exported
// here so hosts only import this package.
package livetree

import "github.com/livefir/livetree/internal/vdom"

// Node is the closed tree union: *Element, *Text, *Null or *Component.
type Node = vdom.Node

// Tree node variants.
type (
	Element   = vdom.Element
	Text      = vdom.Text
	Null      = vdom.Null
	Component = vdom.Component
	Attr      = vdom.Attr
)

// Path addresses a node by child positions from the root.
type Path = vdom.Path

// Patch is the closed patch union; see the Op constants.
type Patch = vdom.Patch

// Patch variants.
type (
	Create     = vdom.Create
	Remove     = vdom.Remove
	Replace    = vdom.Replace
	UpdateText = vdom.UpdateText
	UpdateAttr = vdom.UpdateAttr
	RemoveAttr = vdom.RemoveAttr
	Move       = vdom.Move
	Insert     = vdom.Insert
)

// Prediction vocabulary.
type (
	TemplatePatch       = vdom.TemplatePatch
	ConditionalTemplate = vdom.ConditionalTemplate
	StateChange         = vdom.StateChange
)

// Constructors and codecs re-exported for host convenience.
var (
	NewElement      = vdom.NewElement
	NewKeyedElement = vdom.NewKeyedElement
	NewText         = vdom.NewText
	ParseFragment   = vdom.ParseFragment
	RenderHTML      = vdom.RenderHTML
	ParsePath       = vdom.ParsePath
	EncodeNode      = vdom.EncodeNode
	DecodeNode      = vdom.DecodeNode
	EncodePatches   = vdom.EncodePatches
	DecodePatches   = vdom.DecodePatches
)
