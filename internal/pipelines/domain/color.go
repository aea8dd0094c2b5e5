package domain

// stagePalette is the fixed display palette the admin console cycles through.
var stagePalette = [...]string{
	"#3b82f6",
	"#8b5cf6",
	"#ec4899",
	"#f59e0b",
	"#10b981",
	"#06b6d4",
}

// StageColor assigns a cosmetic color by board position modulo the palette.
func StageColor(position int) string {
	if position < 0 {
		position = -position
	}
	return stagePalette[position%len(stagePalette)]
}
