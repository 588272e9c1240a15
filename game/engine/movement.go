package engine

// Every direction is computed with the same left slide. The grid is first
// oriented so the move points toward the start of each row, slid left, and
// then oriented back.

// Slide moves every tile of g toward d and merges equal neighbours.
// It returns the new grid and the points scored; no tile is spawned.
// An invalid direction returns g unchanged with zero points.
func Slide(g Grid, d Direction) (Grid, int) {
	switch d {
	case Left:
		return slideLeft(g)
	case Right:
		out, points := slideLeft(reverseRows(g))
		return reverseRows(out), points
	case Up:
		out, points := slideLeft(transpose(g))
		return transpose(out), points
	case Down:
		out, points := slideLeft(reverseRows(transpose(g)))
		return transpose(reverseRows(out)), points
	default:
		return g, 0
	}
}

// slideLeft applies the line transform to every row
func slideLeft(g Grid) (Grid, int) {
	var out Grid
	total := 0
	for r := 0; r < Size; r++ {
		line, points := slideLine(g.cells[r*Size : (r+1)*Size])
		copy(out.cells[r*Size:(r+1)*Size], line[:])
		total += points
	}
	return out, total
}

// slideLine is the atomic row operation: compact, merge once, pad
func slideLine(line []int) ([Size]int, int) {
	merged, points := mergeTiles(compact(line))
	return pad(merged), points
}

// compact drops empty cells, keeping tile order
func compact(line []int) []int {
	tiles := make([]int, 0, len(line))
	for _, v := range line {
		if v != 0 {
			tiles = append(tiles, v)
		}
	}
	return tiles
}

// mergeTiles scans left to right and merges adjacent equal tiles.
// A merged tile is skipped so it cannot merge again in the same move.
func mergeTiles(tiles []int) ([]int, int) {
	out := make([]int, 0, len(tiles))
	points := 0
	for i := 0; i < len(tiles); i++ {
		if i+1 < len(tiles) && canMerge(tiles[i], tiles[i+1]) {
			v := tiles[i] * 2
			out = append(out, v)
			points += v
			i++
			continue
		}
		out = append(out, tiles[i])
	}
	return out, points
}

// canMerge reports whether two neighbouring tiles combine
func canMerge(a, b int) bool {
	return a != 0 && a == b && a < MaxTileValue
}

// pad fills the line back up to Size with empty cells on the right
func pad(tiles []int) [Size]int {
	var line [Size]int
	copy(line[:], tiles)
	return line
}

// reverseRows mirrors the grid horizontally
func reverseRows(g Grid) Grid {
	var out Grid
	for r := 0; r < Size; r++ {
		for c := 0; c < Size; c++ {
			out.cells[r*Size+c] = g.cells[r*Size+(Size-1-c)]
		}
	}
	return out
}

// transpose swaps rows and columns
func transpose(g Grid) Grid {
	var out Grid
	for r := 0; r < Size; r++ {
		for c := 0; c < Size; c++ {
			out.cells[c*Size+r] = g.cells[r*Size+c]
		}
	}
	return out
}
