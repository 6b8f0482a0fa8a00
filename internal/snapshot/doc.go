// Package snapshot dumps the observable state of a control tree.
//
// Take walks a control and its descendants and records what a debugger
// panel would show for each: flags, validation state, merged
// configuration, value and errors. Marshal renders a snapshot as canonical
// JSON so two snapshots of equal trees are byte-identical and can be
// compared against golden files.
//
// CANONICAL JSON
//
//   - Object keys sorted by UTF-16 code units
//   - Strings NFC normalized, no HTML escaping
//   - No insignificant whitespace, one trailing newline
package snapshot
