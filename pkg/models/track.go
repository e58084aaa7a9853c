package models

// Track represents a single playable media item
type Track struct {
	ID       string  `json:"id"`
	Title    string  `json:"title"`
	Artist   string  `json:"artist,omitempty"`
	Album    string  `json:"album,omitempty"`
	Src      string  `json:"src"`
	Duration float64 `json:"duration,omitempty"` // in seconds, 0 when unknown
	Cover    string  `json:"cover,omitempty"`
	Lyrics   string  `json:"lyrics,omitempty"` // LRC-formatted lyrics text
}

// Playlist represents a saved, named track list
type Playlist struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	TrackCount  int    `json:"trackCount"`
}
