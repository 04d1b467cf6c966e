package models

// Genre is one entry of the fixed genre vocabulary.
type Genre string

const (
	GenreAction             Genre = "action"
	GenreRomance            Genre = "romance"
	GenreYuri               Genre = "yuri"
	GenreBoysLove           Genre = "boysLove"
	GenreSchoolLife         Genre = "schoolLife"
	GenreAdventure          Genre = "adventure"
	GenreHarem              Genre = "harem"
	GenreSpeculativeFiction Genre = "speculativeFiction"
	GenreWar                Genre = "war"
	GenreSuspense           Genre = "suspense"
	GenreFanFiction         Genre = "fanFiction"
	GenreComedy             Genre = "comedy"
	GenreMagic              Genre = "magic"
	GenreHorror             Genre = "horror"
	GenreHistorical         Genre = "historical"
	GenreSports             Genre = "sports"
	GenreMature             Genre = "mature"
	GenreMecha              Genre = "mecha"
	GenreOtokonoko          Genre = "otokonoko"
)

// GenreAll is the list filter wildcard. It isn't a Genre.
const GenreAll = "all"

// Genres lists the vocabulary in display order.
var Genres = []Genre{
	GenreAction,
	GenreRomance,
	GenreYuri,
	GenreBoysLove,
	GenreSchoolLife,
	GenreAdventure,
	GenreHarem,
	GenreSpeculativeFiction,
	GenreWar,
	GenreSuspense,
	GenreFanFiction,
	GenreComedy,
	GenreMagic,
	GenreHorror,
	GenreHistorical,
	GenreSports,
	GenreMature,
	GenreMecha,
	GenreOtokonoko,
}

var genreSet = func() map[Genre]struct{} {
	set := make(map[Genre]struct{}, len(Genres))
	for _, g := range Genres {
		set[g] = struct{}{}
	}
	return set
}()

func (g Genre) Valid() bool {
	_, ok := genreSet[g]
	return ok
}
