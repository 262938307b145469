package store

// DefaultEmotions is the starter emotion catalogue seeded on first run.
var DefaultEmotions = []Emotion{
	{Name: "joyful", Color: "#F5C518"},
	{Name: "calm", Color: "#7FB3D5"},
	{Name: "energized", Color: "#E74C3C"},
	{Name: "grateful", Color: "#58D68D"},
	{Name: "reflective", Color: "#9B59B6"},
	{Name: "tired", Color: "#95A5A6"},
	{Name: "anxious", Color: "#E67E22"},
	{Name: "proud", Color: "#F1948A"},
}
