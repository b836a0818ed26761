package layout

// DemoLayout is shown when nothing usable has been persisted.
func DemoLayout() []Record {
	size := Dims{Width: 500, Height: 300}
	return []Record{
		{ID: 1, Address: "https://news.ycombinator.com", Position: Point{X: 100, Y: 100}, Size: size},
		{ID: 2, Address: "https://www.wikipedia.org", Position: Point{X: 700, Y: 150}, Size: size},
		{ID: 3, Address: "https://github.com", Position: Point{X: 300, Y: 500}, Size: size},
	}
}
