package dom

// PatchOp is the type of a live-tree mutation.
type PatchOp uint8

const (
	PatchSetText         PatchOp = 0x01 // Update text content
	PatchSetAttr         PatchOp = 0x02 // Set/update attribute
	PatchRemoveAttr      PatchOp = 0x03 // Remove attribute
	PatchSetStyle        PatchOp = 0x04 // Set style property
	PatchInsertNode      PatchOp = 0x05 // Insert node under parent
	PatchRemoveNode      PatchOp = 0x06 // Detach node
	PatchReplaceChildren PatchOp = 0x07 // Child list swapped wholesale
)

// String returns the string representation of the PatchOp.
func (op PatchOp) String() string {
	switch op {
	case PatchSetText:
		return "SetText"
	case PatchSetAttr:
		return "SetAttr"
	case PatchRemoveAttr:
		return "RemoveAttr"
	case PatchSetStyle:
		return "SetStyle"
	case PatchInsertNode:
		return "InsertNode"
	case PatchRemoveNode:
		return "RemoveNode"
	case PatchReplaceChildren:
		return "ReplaceChildren"
	default:
		return "Unknown"
	}
}

// Patch records one observed mutation of the live tree. A Document's sink
// receives these in mutation order; a thin client can replay them against
// its copy of the tree.
type Patch struct {
	Op           PatchOp `json:"op"`
	Handle       Handle  `json:"h"`
	ParentHandle Handle  `json:"p,omitempty"`
	Key          string  `json:"k,omitempty"`
	Value        string  `json:"v,omitempty"`
	Index        int     `json:"i,omitempty"`
}
