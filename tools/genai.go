package tools

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/jsonschema-go/jsonschema"
	openai "github.com/sashabaranov/go-openai"

	"github.com/rlch/neokit"
)

// Embedder turns text into a vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// CypherGenerator writes a Cypher query answering question over schema.
type CypherGenerator interface {
	GenerateCypher(ctx context.Context, question, schema string) (string, error)
}

// SchemaSource returns the graph schema in prompt form.
type SchemaSource func(ctx context.Context) (string, error)

// StaticSchema always returns s.
func StaticSchema(s string) SchemaSource {
	return func(context.Context) (string, error) { return s, nil }
}

// IntrospectedSchema reads the schema from p on first successful use and
// caches it. While introspection fails, fallback is returned instead.
func IntrospectedSchema(p neokit.SessionProvider, fallback string) SchemaSource {
	var (
		mu     sync.Mutex
		cached string
	)

	return func(ctx context.Context) (string, error) {
		mu.Lock()
		defer mu.Unlock()

		if cached != "" {
			return cached, nil
		}

		schema, err := neokit.IntrospectSchema(ctx, p)
		if err != nil || len(schema.Nodes) == 0 {
			return fallback, nil //nolint:nilerr // serve the static schema instead
		}

		cached = schema.String()

		return cached, nil
	}
}

// MoviesSchema describes the recommendations movie graph.
const MoviesSchema = `Node properties:
Person {name: STRING, born: INTEGER}
Movie {tagline: STRING, title: STRING, released: INTEGER}
Genre {name: STRING}
User {name: STRING}

Relationship properties:
ACTED_IN {role: STRING}
RATED {rating: INTEGER}

The relationships:
(:Person)-[:ACTED_IN]->(:Movie)
(:Person)-[:DIRECTED]->(:Movie)
(:User)-[:RATED]->(:Movie)
(:Movie)-[:IN_GENRE]->(:Genre)
`

// MoviePlotIndex is the vector index over Movie.plotEmbedding.
const MoviePlotIndex = "moviePlots"

const plotSearchQuery = `CALL db.index.vector.queryNodes($index, $top_k, $embedding)
YIELD node, score
RETURN node.title AS title, node.tmdbId AS tmdbId, node.plot AS plot, score
ORDER BY score DESC`

// SearchMoviesByPlot embeds a plot description and queries the plot vector
// index for the closest movies.
func SearchMoviesByPlot(embedder Embedder) Tool {
	return Tool{
		Name:        SearchMoviesPlotTool,
		Title:       "Search movies by plot",
		Description: "Search for movies similar to the given plot description. Returns movies with title, tmdbId and plot ordered by similarity score.",
		Schema: Object(map[string]*jsonschema.Schema{
			"plot":  String("The plot of the movie used in the semantic search"),
			"top_k": Integer("The number of similar movies to return"),
		}, "plot"),
		Defaults: map[string]any{"top_k": int64(6)},
		Template: neokit.Request{Text: plotSearchQuery, Params: map[string]any{"index": MoviePlotIndex}},
		Computed: []string{"embedding"},
		ReadOnly: true,
		Bind: func(ctx context.Context, tmpl neokit.Request, args map[string]any) (neokit.Request, error) {
			plot, _ := args["plot"].(string)
			Notify(ctx, LevelInfo, "Searching for a movie by plot : %s", plot)

			vec, err := embedder.Embed(ctx, plot)
			if err != nil {
				Notify(ctx, LevelError, "Failed to find movie by plot: %v", err)

				return neokit.Request{}, fmt.Errorf("embed plot: %w", err)
			}

			req, err := BindArgs(ctx, tmpl, args)
			if err != nil {
				return neokit.Request{}, err
			}

			req.Params["embedding"] = vec
			delete(req.Params, "plot")

			return req, nil
		},
	}
}

// CatchAllMovieQuery answers a natural language question by generating a
// Cypher query. The generated query must be read-only.
func CatchAllMovieQuery(gen CypherGenerator, schema SchemaSource) Tool {
	return Tool{
		Name:        CatchAllMovieQueryTool,
		Title:       "Query the movie database",
		Description: "Query the database with a natural language question.",
		Schema: Object(map[string]*jsonschema.Schema{
			"query": String("The natural language question about the movie database"),
		}, "query"),
		ReadOnly: true,
		Bind: func(ctx context.Context, _ neokit.Request, args map[string]any) (neokit.Request, error) {
			question, _ := args["query"].(string)

			s, err := schema(ctx)
			if err != nil {
				return neokit.Request{}, fmt.Errorf("load schema: %w", err)
			}

			text, err := gen.GenerateCypher(ctx, question, s)
			if err != nil {
				return neokit.Request{}, fmt.Errorf("generate cypher: %w", err)
			}

			Notify(ctx, LevelDebug, "Generated Cypher: %s", text)

			return neokit.Request{Text: text}, nil
		},
		Shape: func(_ context.Context, _ map[string]any, res *neokit.EagerResult) (any, error) {
			return map[string]any{
				"cypher":  res.Summary.Query.Text,
				"records": neokit.Records(res.Records),
			}, nil
		},
	}
}

// ErrEmptyCompletion is returned when the model produced no query.
var ErrEmptyCompletion = errors.New("tools: model returned no query")

// ErrUnknownEmbeddingModel is returned for embedding model names the client
// library cannot send.
var ErrUnknownEmbeddingModel = errors.New("tools: unknown embedding model")

// embeddingModels maps configured names onto the client's model enum.
var embeddingModels = map[string]openai.EmbeddingModel{
	"text-embedding-ada-002": openai.AdaEmbeddingV2,
}

// OpenAI implements Embedder and CypherGenerator with the OpenAI API.
type OpenAI struct {
	client         *openai.Client
	model          string
	embeddingModel openai.EmbeddingModel
	examples       []string
}

// NewOpenAI creates a client for apiKey.
func NewOpenAI(apiKey, model, embeddingModel string) (*OpenAI, error) {
	return NewOpenAIWithConfig(openai.DefaultConfig(apiKey), model, embeddingModel)
}

// NewOpenAIWithConfig creates a client from cfg, e.g. to point at another base URL.
func NewOpenAIWithConfig(cfg openai.ClientConfig, model, embeddingModel string) (*OpenAI, error) {
	em, ok := embeddingModels[embeddingModel]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownEmbeddingModel, embeddingModel)
	}

	return &OpenAI{
		client:         openai.NewClientWithConfig(cfg),
		model:          model,
		embeddingModel: em,
		examples:       DefaultCypherExamples,
	}, nil
}

// DefaultCypherExamples are few-shot pairs included in every prompt.
var DefaultCypherExamples = []string{
	"USER INPUT: 'Get user ratings for a movie?' QUERY: MATCH (u:User)-[r:RATED]->(m:Movie) WHERE m.title = 'Movie Title' RETURN r.rating",
	"USER INPUT: 'Get details for this case sensitive name property' QUERY: MATCH (n) WHERE toLower(n.name) CONTAINS toLower(name) RETURN n",
}

// Embed returns the embedding of text.
func (o *OpenAI) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := o.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: []string{text},
		Model: o.embeddingModel,
	})
	if err != nil {
		return nil, err
	}

	if len(resp.Data) == 0 {
		return nil, errors.New("tools: empty embedding response")
	}

	return resp.Data[0].Embedding, nil
}

// GenerateCypher asks the chat model for a query answering question.
func (o *OpenAI) GenerateCypher(ctx context.Context, question, schema string) (string, error) {
	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: o.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: "You are an expert Neo4j Cypher translator."},
			{Role: openai.ChatMessageRoleUser, Content: Text2CypherPrompt(question, schema, o.examples)},
		},
		Temperature: 0,
	})
	if err != nil {
		return "", err
	}

	if len(resp.Choices) == 0 {
		return "", ErrEmptyCompletion
	}

	text := CleanCompletion(resp.Choices[0].Message.Content)
	if text == "" {
		return "", ErrEmptyCompletion
	}

	return text, nil
}

// Text2CypherPrompt builds the text-to-Cypher prompt.
func Text2CypherPrompt(question, schema string, examples []string) string {
	var b strings.Builder

	b.WriteString("Task: Generate a Cypher statement for querying a Neo4j graph database from a user input.\n\n")
	b.WriteString("Schema:\n")
	b.WriteString(schema)
	b.WriteString("\n\nExamples (optional):\n")
	b.WriteString(strings.Join(examples, "\n"))
	b.WriteString("\n\nInput:\n")
	b.WriteString(question)
	b.WriteString("\n\nDo not use any properties or relationships not included in the schema.\n")
	b.WriteString("Do not include triple backticks ``` or any additional text except the generated Cypher statement in your response.\n\n")
	b.WriteString("Cypher query:")

	return b.String()
}

// CleanCompletion strips markdown code fences and a trailing semicolon.
func CleanCompletion(s string) string {
	s = strings.TrimSpace(s)

	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```")
		if i := strings.IndexByte(s, '\n'); i >= 0 {
			// Drop the language tag line, e.g. ```cypher.
			s = s[i+1:]
		}

		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}

	s = strings.TrimSpace(s)

	return strings.TrimSpace(strings.TrimSuffix(s, ";"))
}
