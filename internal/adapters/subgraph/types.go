package subgraph

import "encoding/json"

// DTOs raw del subgraph. Los BigDecimal/BigInt llegan como strings JSON.

// graphqlRequest es el envelope estándar de una request GraphQL.
type graphqlRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

// graphqlResponse es el envelope estándar de una respuesta GraphQL.
type graphqlResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

// poolsData es el contenido de "data" para poolsQuery.
type poolsData struct {
	Direct  []poolDTO `json:"direct"`
	Swapped []poolDTO `json:"swapped"`
	Meta    *metaDTO  `json:"_meta"`
}

type poolDTO struct {
	ID                  string   `json:"id"`
	Token0              tokenDTO `json:"token0"`
	Token1              tokenDTO `json:"token1"`
	Token0Price         string   `json:"token0Price"`
	Token1Price         string   `json:"token1Price"`
	TotalValueLockedUSD string   `json:"totalValueLockedUSD"`
	VolumeUSD           string   `json:"volumeUSD"`
}

type tokenDTO struct {
	ID       string `json:"id"`
	Symbol   string `json:"symbol"`
	Decimals string `json:"decimals"`
}

type metaDTO struct {
	Block struct {
		Number    int64 `json:"number"`
		Timestamp int64 `json:"timestamp"`
	} `json:"block"`
}
