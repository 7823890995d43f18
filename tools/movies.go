package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"

	"github.com/rlch/neokit"
)

// Tool names of the movie graph.
const (
	GraphStatisticsTool    = "graph_statistics"
	SearchMoviesTitleTool  = "search_movies_by_title"
	MovieInformationTool   = "get_movie_information_by_tmdbId"
	SearchMoviesPlotTool   = "search_movies_by_plot"
	CatchAllMovieQueryTool = "catch_all_query_movie_database"
)

const (
	graphStatisticsQuery = `RETURN COUNT {()} AS nodes, COUNT {()-[]-()} AS relationships`

	searchTitleQuery = `MATCH (m:Movie)
WHERE toLower(m.title) CONTAINS toLower($title)
RETURN
    m.tmdbId AS tmdbId,
    m.title AS title,
    m.plot AS plot,
    m.released AS released`

	movieInformationQuery = `MATCH (m:Movie {tmdbId: $tmdbId})
RETURN m.title AS title,
   m.released AS released,
   m.tagline AS tagline,
   m.runtime AS runtime,
   m.plot AS plot,
   [ (m)-[:IN_GENRE]->(g:Genre) | g.name ] AS genres,
   [ (p)-[r:ACTED_IN]->(m) | {name: p.name, role: r.role} ] AS actors,
   [ (d)-[:DIRECTED]->(m) | d.name ] AS directors`
)

// GraphStatistics counts nodes and relationships.
func GraphStatistics() Tool {
	return Tool{
		Name:        GraphStatisticsTool,
		Title:       "Graph statistics",
		Description: "Count the number of nodes and relationships in the graph.",
		Template:    neokit.Request{Text: graphStatisticsQuery},
		ReadOnly:    true,
		Shape: func(_ context.Context, _ map[string]any, res *neokit.EagerResult) (any, error) {
			if len(res.Records) == 0 {
				return map[string]any{"nodes": int64(0), "relationships": int64(0)}, nil
			}

			return res.Records[0].AsMap(), nil
		},
	}
}

// SearchMoviesByTitle finds movies whose title contains a case-insensitive
// substring.
func SearchMoviesByTitle() Tool {
	return Tool{
		Name:        SearchMoviesTitleTool,
		Title:       "Search movies by title",
		Description: "Search for movies by a title. Returns movies with tmdbId, title, plot and release date.",
		Schema: Object(map[string]*jsonschema.Schema{
			"title": String("The title of the movie"),
		}, "title"),
		Template: neokit.Request{Text: searchTitleQuery},
		ReadOnly: true,
		Bind: func(ctx context.Context, tmpl neokit.Request, args map[string]any) (neokit.Request, error) {
			Notify(ctx, LevelInfo, "Searching for a movie by title : %v", args["title"])

			return BindArgs(ctx, tmpl, args)
		},
		Shape: func(ctx context.Context, args map[string]any, res *neokit.EagerResult) (any, error) {
			if len(res.Records) == 0 {
				msg := fmt.Sprintf("No movies found with a title containing '%v'", args["title"])
				Notify(ctx, LevelWarning, "%s", msg)

				return msg, nil
			}

			return neokit.Records(res.Records), nil
		},
	}
}

// MovieInformation renders one movie, its genres, directors and cast as a
// markdown document.
func MovieInformation() Tool {
	return Tool{
		Name:        MovieInformationTool,
		Title:       "Movie information",
		Description: "Get detailed information about a specific movie, including title, plot, cast, and genres.",
		Schema: Object(map[string]*jsonschema.Schema{
			"tmdbId": String(`The TMDB ID of the movie (e.g., "603" for The Matrix)`),
		}, "tmdbId"),
		Template: neokit.Request{Text: movieInformationQuery},
		ReadOnly: true,
		Bind: func(ctx context.Context, tmpl neokit.Request, args map[string]any) (neokit.Request, error) {
			Notify(ctx, LevelInfo, "Fetching movie details for TMDB ID: %v", args["tmdbId"])

			return BindArgs(ctx, tmpl, args)
		},
		Shape: func(ctx context.Context, args map[string]any, res *neokit.EagerResult) (any, error) {
			if len(res.Records) == 0 {
				Notify(ctx, LevelWarning, "Movie with TMDB ID %v not found", args["tmdbId"])

				return fmt.Sprintf("Movie with TMDB ID %v not found in database", args["tmdbId"]), nil
			}

			movie := res.Records[0].AsMap()
			Notify(ctx, LevelInfo, "Successfully fetched details for '%v'", movie["title"])

			return FormatMovie(movie), nil
		},
	}
}

// FormatMovie renders a movie information record as markdown.
func FormatMovie(movie map[string]any) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# %v (%v)\n\n", movie["title"], movie["released"])

	if tagline, _ := movie["tagline"].(string); tagline != "" {
		fmt.Fprintf(&b, "_%s_\n\n", tagline)
	}

	fmt.Fprintf(&b, "**Runtime:** %v minutes\n", movie["runtime"])
	fmt.Fprintf(&b, "**Genres:** %s\n", strings.Join(stringList(movie["genres"]), ", "))

	if directors := stringList(movie["directors"]); len(directors) > 0 {
		fmt.Fprintf(&b, "**Director(s):** %s\n", strings.Join(directors, ", "))
	}

	b.WriteString("\n## Plot\n")
	fmt.Fprintf(&b, "%v", orEmpty(movie["plot"]))

	actors, _ := movie["actors"].([]any)
	if len(actors) > 0 {
		b.WriteString("\n\n## Cast")

		for _, a := range actors {
			actor, _ := a.(map[string]any)
			name := orEmpty(actor["name"])

			if role, _ := actor["role"].(string); role != "" {
				fmt.Fprintf(&b, "\n- %v as %s", name, role)
			} else {
				fmt.Fprintf(&b, "\n- %v", name)
			}
		}
	}

	return b.String()
}

func stringList(v any) []string {
	items, _ := v.([]any)

	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}

	return out
}

func orEmpty(v any) any {
	if v == nil {
		return ""
	}

	return v
}
