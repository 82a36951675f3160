package repository

import "strings"

// likeEscaper escapes LIKE wildcards with '!' so the same pattern works on mysql, postgres and sqlite.
var likeEscaper = strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

func prefixPattern(prefix string) string {
	return escapeLike(strings.ToUpper(prefix)) + "%"
}

func containsPattern(s string) string {
	return "%" + escapeLike(strings.ToLower(s)) + "%"
}
