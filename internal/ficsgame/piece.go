package ficsgame

// Piece packs color and kind: the low nibble is the kind, 0x10 marks Black.
type Piece uint8

const (
	Empty Piece = 0x00

	WhitePawn   Piece = 0x01
	WhiteRook   Piece = 0x02
	WhiteKnight Piece = 0x03
	WhiteBishop Piece = 0x04
	WhiteQueen  Piece = 0x05
	WhiteKing   Piece = 0x06

	BlackPawn   Piece = 0x11
	BlackRook   Piece = 0x12
	BlackKnight Piece = 0x13
	BlackBishop Piece = 0x14
	BlackQueen  Piece = 0x15
	BlackKing   Piece = 0x16

	blackBit Piece = 0x10
	kindMask Piece = 0x0f
)

// Kind returns the colorless piece code (1..6), 0 for an empty square.
func (p Piece) Kind() Piece { return p & kindMask }

func (p Piece) IsBlack() bool { return p != Empty && p&blackBit != 0 }

func (p Piece) IsWhite() bool { return p != Empty && p&blackBit == 0 }

const kindLetters = " prnbqk"

// Letter returns the style-12 character for the piece ('-' when empty).
func (p Piece) Letter() byte {
	k := int(p.Kind())
	if p == Empty || k >= len(kindLetters) {
		return '-'
	}
	c := kindLetters[k]
	if p.IsWhite() {
		return c - 'a' + 'A'
	}
	return c
}

func (p Piece) String() string { return string(p.Letter()) }

// pieceFromLetter decodes one board character. Uppercase is White, lowercase
// is Black; anything else is an empty square.
func pieceFromLetter(c byte) Piece {
	switch c {
	case 'P':
		return WhitePawn
	case 'R':
		return WhiteRook
	case 'N':
		return WhiteKnight
	case 'B':
		return WhiteBishop
	case 'Q':
		return WhiteQueen
	case 'K':
		return WhiteKing
	case 'p':
		return BlackPawn
	case 'r':
		return BlackRook
	case 'n':
		return BlackKnight
	case 'b':
		return BlackBishop
	case 'q':
		return BlackQueen
	case 'k':
		return BlackKing
	default:
		return Empty
	}
}

// Board is rank-major. Row 0 is the first rank block of a style-12 line
// (the 8th rank from White's side), column 0 is the a-file.
type Board [8][8]Piece

// Row returns a copy of one row.
func (b Board) Row(i int) [8]Piece { return b[i] }

// String renders the board as eight style-12 rank blocks separated by spaces.
func (b Board) String() string {
	buf := make([]byte, 0, 8*9)
	for r := 0; r < 8; r++ {
		if r > 0 {
			buf = append(buf, ' ')
		}
		for f := 0; f < 8; f++ {
			buf = append(buf, b[r][f].Letter())
		}
	}
	return string(buf)
}
