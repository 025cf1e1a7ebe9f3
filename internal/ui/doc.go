// Package ui renders hostwatch's terminal output: styled status lines, load
// bars, the check and session tables, and a small spinner for blocking calls.
//
// Styling uses Lip Gloss. Color is turned off automatically when the output
// is not a terminal or NO_COLOR is set; call DisableColors for --no-color.
//
//	ui.ConfigureColors(os.Stdout)
//	fmt.Println(ui.RenderBar(93.4, 20, 90))   // [██████████████████░░]  93%
package ui
