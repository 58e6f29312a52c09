package ficsgame

import (
	"strconv"
	"strings"
)

// Listing columns, measured with the game ID right-aligned in a field of
// width idWidth. Rows whose ID is narrower are shifted accordingly.
const (
	idWidth       = 3
	bracketColumn = 37
	privateColumn = 38
	typeColumn    = 39
	ratedColumn   = 40
)

// IsListingRow reports whether a line of "games" output is a live game row.
// Examined games and indented annotation/footer lines are not.
func IsListingRow(line string) bool {
	if strings.TrimSpace(line) == "" {
		return false
	}
	if strings.Contains(line, "(Exam.") {
		return false
	}
	return !strings.HasPrefix(line, "  ")
}

// ParseGameSummary decodes one listing row such as
//
//	28 ++++ TryMe       1737 Jack       [ su 30  20]  22:27 - 23:17 (29-30) W: 16
func ParseGameSummary(line string) (GameSummary, error) {
	line = strings.Trim(line, "\r")
	start := len(line) - len(strings.TrimLeft(line, " "))
	idEnd := strings.IndexByte(line[start:], ' ')
	if start == len(line) || idEnd <= 0 {
		return GameSummary{}, summaryErr(line, "missing game id")
	}
	idEnd += start
	id, err := strconv.Atoi(line[start:idEnd])
	if err != nil {
		return GameSummary{}, summaryErr(line, "game id %q is not a number", line[start:idEnd])
	}

	shift := idEnd - idWidth
	col := func(c int) int { return c + shift }
	if len(line) <= col(ratedColumn) {
		return GameSummary{}, summaryErr(line, "row too short (%d bytes)", len(line))
	}
	if line[col(bracketColumn)] != '[' {
		return GameSummary{}, summaryErr(line, "expected '[' at column %d", col(bracketColumn))
	}

	players := strings.Fields(line[idEnd:col(bracketColumn)])
	if len(players) != 4 {
		return GameSummary{}, summaryErr(line, "expected rating/name pairs, got %d tokens", len(players))
	}

	gt, ok := GameTypeFromLetter(line[col(typeColumn)])
	if !ok {
		return GameSummary{}, summaryErr(line, "unknown game type %q", line[col(typeColumn)])
	}

	g := GameSummary{
		ID:      id,
		Players: [2]string{players[1], players[3]},
		Ratings: [2]int{parseRating(players[0]), parseRating(players[2])},
		Type:    gt,
		Private: line[col(privateColumn)] == 'p',
		Rated:   line[col(ratedColumn)] == 'r',
	}

	rest := line[col(ratedColumn)+1:]
	end := strings.IndexByte(rest, ']')
	if end < 0 {
		return GameSummary{}, summaryErr(line, "unterminated time control")
	}
	tc := strings.Fields(rest[:end])
	if len(tc) != 2 {
		return GameSummary{}, summaryErr(line, "expected initial and increment, got %q", rest[:end])
	}
	if g.Initial, err = strconv.Atoi(tc[0]); err != nil {
		return GameSummary{}, summaryErr(line, "initial time %q", tc[0])
	}
	if g.Increment, err = strconv.Atoi(tc[1]); err != nil {
		return GameSummary{}, summaryErr(line, "increment %q", tc[1])
	}
	return g, nil
}

func parseRating(tok string) int {
	n, err := strconv.Atoi(tok)
	if err != nil {
		return UnratedRating
	}
	return n
}

// ParseGameList parses the body of a "games" reply. Rows that fail to parse
// are skipped and reported in errs, in order.
func ParseGameList(text string) (list GameList, errs []error) {
	for _, line := range strings.Split(text, "\n") {
		line = strings.Trim(line, "\r")
		if !IsListingRow(line) {
			continue
		}
		g, err := ParseGameSummary(line)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		list = append(list, g)
	}
	return list, errs
}
