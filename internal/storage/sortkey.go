// Derives the artist sort key used by ORDER BY artist_name.

package storage

import (
	"cmp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/maruel/albumdb/internal/models"
)

// leadingArticles are stripped from band names, matched case-insensitively.
var leadingArticles = []string{"the ", "a ", "an "}

// givenNames are first names that mark a two-word artist as a person.
var givenNames = map[string]struct{}{}

// bandExceptions are two-word band names that look like a person's name.
var bandExceptions = map[string]struct{}{}

func init() {
	for _, n := range strings.Fields(`
		aaron adam al alan albert alex alice alison amy andrew andy angel ann anna
		anne annie anthony arthur barry ben benjamin bill billy bob bobby bonnie
		brad brian bruce buddy carl carla carly carol carole charles charlie chet
		chris christian christina christine chuck cliff colin craig curtis dan
		daniel danny dave david dean diana donna don donald doug duane dusty dwight
		ed eddie edgar elliott elton elvis emmylou eric etta frank frankie fred
		gary gene george gil glen glenn gordon graham greg gregory hank harry
		heather helen henry herbie howard ian isaac jack jackie jackson jake james
		jamie jane janet janis jason jeff jennifer jerry jesse jill jim jimi jimmy
		joan joe joel john johnny jon joni jose joseph josh julia julian justin
		karen kate katie keith kelly ken kenny kevin kim kurt larry laura lee leon
		leonard linda lionel lisa liz lou louis lucinda luke marc marcus maria
		mariah marianne mark martha martin marty marvin mary matt matthew max
		melissa michael mick mike miles nancy natalie neil nick nina norah oliver
		otis patsy patti patty paul pete peter phil philip prince quincy ralph ray
		randy richard rick ricky rob robert robbie roger ron ronnie rosanne roy
		ryan sam samuel sandy sarah scott sean sheryl sinead sonny stan stephen
		steve steven stevie sue susan ted terry thelonious thomas tim todd tom
		tommy tony tracy van victoria vince wanda warren wayne whitney will
		william willie woody
	`) {
		givenNames[n] = struct{}{}
	}
	for _, n := range []string{
		"pink floyd", "joy division", "talking heads", "steely dan", "simple minds",
		"james gang", "marilyn manson", "alice cooper", "rob zombie", "van halen",
		"jethro tull", "nick cave", "jack white", "jesus jones", "max romeo",
		"paul revere", "sonny boy", "lou reed", "dean martin", "john mayall",
	} {
		bandExceptions[n] = struct{}{}
	}
}

// SortKey returns the key artist names are ordered by.
//
//  1. A leading "The ", "A " or "An " is stripped: "The Beatles" → "Beatles".
//  2. Otherwise exactly two capitalized words whose first word is a known
//     given name, and which are not a known band, are reordered as "Last,
//     First": "John Smith" → "Smith, John".
//  3. Otherwise the trimmed name is used unchanged.
//
// The heuristic misclassifies some names. Existing orderings depend on its
// exact output.
func SortKey(name string) string {
	name = strings.TrimSpace(name)
	for _, article := range leadingArticles {
		if len(name) >= len(article) && strings.EqualFold(name[:len(article)], article) {
			return strings.TrimSpace(name[len(article):])
		}
	}
	words := strings.Split(name, " ")
	if len(words) != 2 || !isCapitalized(words[0]) || !isCapitalized(words[1]) {
		return name
	}
	if _, ok := bandExceptions[strings.ToLower(name)]; ok {
		return name
	}
	if _, ok := givenNames[strings.ToLower(words[0])]; !ok {
		return name
	}
	return words[1] + ", " + words[0]
}

func isCapitalized(word string) bool {
	r, _ := utf8.DecodeRuneInString(word)
	return r != utf8.RuneError && unicode.IsUpper(r)
}

// CompareArtists orders albums by artist sort key, then release year with
// unknown years first, then album name. Comparisons are ordinal.
func CompareArtists(a, b *models.Album) int {
	return compareArtistKeys(SortKey(a.ArtistName), SortKey(b.ArtistName), a, b)
}

func compareArtistKeys(ka, kb string, a, b *models.Album) int {
	if c := cmp.Compare(ka, kb); c != 0 {
		return c
	}
	if c := cmp.Compare(a.Year(), b.Year()); c != 0 {
		return c
	}
	return cmp.Compare(a.AlbumName, b.AlbumName)
}
