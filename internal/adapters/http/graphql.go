package http

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/graphql-go/graphql"

	"github.com/samirrijal/footpath/internal/core/domain"
	"github.com/samirrijal/footpath/internal/core/usecases"
)

const clientKey ctxKey = "client"

func clientFromCtx(ctx context.Context) string {
	id, _ := ctx.Value(clientKey).(string)
	return id
}

func outcomeToMap(out domain.Outcome) map[string]interface{} {
	m := map[string]interface{}{
		"id":     string(out.Point.ID),
		"name":   out.Point.Name,
		"cached": out.Cached,
	}
	switch out.Kind {
	case domain.OutcomeResolved:
		m["distance"] = out.Entry.DistanceMeters
		m["duration"] = out.Entry.DurationSeconds
	case domain.OutcomeBanded:
		m["more_than"] = out.MoreThanKm
	case domain.OutcomeFailed:
		m["error"] = "Unable to calculate distance"
	}
	return m
}

// buildSchema creates the GraphQL schema wired to the distance service.
func buildSchema(deps *Dependencies) (graphql.Schema, error) {
	pointType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Point",
		Fields: graphql.Fields{
			"id": &graphql.Field{
				Type: graphql.String,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return string(p.Source.(domain.Point).ID), nil
				},
			},
			"lat":  &graphql.Field{Type: graphql.Float},
			"lon":  &graphql.Field{Type: graphql.Float},
			"name": &graphql.Field{Type: graphql.String},
		},
	})

	distanceType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Distance",
		Fields: graphql.Fields{
			"id":        &graphql.Field{Type: graphql.String},
			"name":      &graphql.Field{Type: graphql.String},
			"distance":  &graphql.Field{Type: graphql.Int, Description: "Walking distance in meters"},
			"duration":  &graphql.Field{Type: graphql.Int, Description: "Walking time in seconds"},
			"more_than": &graphql.Field{Type: graphql.Int, Description: "Lower bound in km when the point is too far"},
			"cached":    &graphql.Field{Type: graphql.Boolean},
			"error":     &graphql.Field{Type: graphql.String},
		},
	})

	statusType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Status",
		Fields: graphql.Fields{
			"points_loaded":  &graphql.Field{Type: graphql.Int},
			"cache_entries":  &graphql.Field{Type: graphql.Int},
			"uptime_seconds": &graphql.Field{Type: graphql.Int},
		},
	})

	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"distance": &graphql.Field{
				Type:        distanceType,
				Description: "Walking distance from origin to a registered point",
				Args: graphql.FieldConfigArgument{
					"origin":      &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"destination": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					origin, _ := p.Args["origin"].(string)
					dest, _ := p.Args["destination"].(string)
					out, err := deps.Distances.Distance(p.Context, usecases.DistanceQuery{
						ClientID:    clientFromCtx(p.Context),
						Origin:      origin,
						Destination: dest,
					})
					if err != nil {
						return nil, err
					}
					return outcomeToMap(out), nil
				},
			},
			"allDistances": &graphql.Field{
				Type:        graphql.NewList(distanceType),
				Description: "Walking distance from origin to every registered point",
				Args: graphql.FieldConfigArgument{
					"origin": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					origin, _ := p.Args["origin"].(string)
					outs, err := deps.Distances.AllDistances(p.Context, clientFromCtx(p.Context), origin)
					if err != nil {
						return nil, err
					}
					result := make([]map[string]interface{}, len(outs))
					for i, out := range outs {
						result[i] = outcomeToMap(out)
					}
					return result, nil
				},
			},
			"points": &graphql.Field{
				Type:        graphql.NewList(pointType),
				Description: "Registered destinations",
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Distances.Points(), nil
				},
			},
			"status": &graphql.Field{
				Type: statusType,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					st := deps.Distances.Status()
					return map[string]interface{}{
						"points_loaded":  st.PointsLoaded,
						"cache_entries":  st.CacheEntries,
						"uptime_seconds": int(st.Uptime.Seconds()),
					}, nil
				},
			},
		},
	})

	return graphql.NewSchema(graphql.SchemaConfig{
		Query: queryType,
	})
}

// GraphQLHandler serves the GraphQL endpoint.
func GraphQLHandler(deps *Dependencies) fiber.Handler {
	schema, err := buildSchema(deps)
	if err != nil {
		// This would be a programming error in the schema definition
		panic("graphql schema build: " + err.Error())
	}

	type gqlRequest struct {
		Query         string                 `json:"query"`
		OperationName string                 `json:"operationName"`
		Variables     map[string]interface{} `json:"variables"`
	}

	return func(c *fiber.Ctx) error {
		var req gqlRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}

		ctx := context.WithValue(c.UserContext(), clientKey, clientID(c))
		result := graphql.Do(graphql.Params{
			Schema:         schema,
			RequestString:  req.Query,
			VariableValues: req.Variables,
			OperationName:  req.OperationName,
			Context:        ctx,
		})

		return c.JSON(result)
	}
}
