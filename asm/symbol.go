package asm

import "github.com/davehorner/buxn-sub000/internal/source"

// SymbolKind discriminates the records the assembler emits for each
// codegen operation, consumed downstream by chess and the symtab writer.
type SymbolKind int

const (
	SymMacro SymbolKind = iota
	SymMacroRef
	SymLabel
	SymLabelRef
	SymOpcode
	SymNumber
	SymText
	SymComment
	SymMark
)

func (k SymbolKind) String() string {
	switch k {
	case SymMacro:
		return "macro"
	case SymMacroRef:
		return "macro-ref"
	case SymLabel:
		return "label"
	case SymLabelRef:
		return "label-ref"
	case SymOpcode:
		return "opcode"
	case SymNumber:
		return "number"
	case SymText:
		return "text"
	case SymComment:
		return "comment"
	case SymMark:
		return "mark"
	default:
		return "unknown"
	}
}

// Symbol is one emitted record: every codegen action produces at least
// one, at the address it affects. ID's meaning depends on Kind: the
// opcode byte for SymOpcode, the unique label id for SymLabel, the literal
// value for SymNumber, the comment nesting depth for SymComment.
// SymLabelRef symbols carry ID 0; their target is known only by Name
// (nil for an anonymous backward reference).
type Symbol struct {
	Kind            SymbolKind
	ID              uint16
	Name            *string
	NameIsGenerated bool
	Addr            uint16
	Region          source.Region
}
