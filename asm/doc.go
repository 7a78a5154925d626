// Package asm assembles the stack machine's text source language: runic
// sigils select codegen actions, `@`/`&` define global/local labels,
// `%name { ... }` defines a macro (taking one argument when the name ends
// in `:`), `~name` includes a file,
// and `{ ... }` opens an anonymous lambda closed by the next `}`.
//
// Assembly is single-pass: forward references to labels not yet defined
// are queued on the symbol table and patched in place the moment the
// label is defined, or reported as unresolved once the input is
// exhausted. The write pointer starts at the reset vector (0x0100);
// writing below it is a hard error.
package asm
