package game

import "tictactoe/internal/domain"

// Lines - rows, columns, diagonals
var Lines = [8]domain.Line{
	{0, 1, 2}, {3, 4, 5}, {6, 7, 8},
	{0, 3, 6}, {1, 4, 7}, {2, 5, 8},
	{0, 4, 8}, {2, 4, 6},
}

// WinningLine returns the first line fully held by mark.
func WinningLine(b domain.Board, mark domain.Mark) (domain.Line, bool) {
	if mark == domain.Empty {
		return domain.Line{}, false
	}
	for _, l := range Lines {
		if b[l[0]] == mark && b[l[1]] == mark && b[l[2]] == mark {
			return l, true
		}
	}
	return domain.Line{}, false
}
