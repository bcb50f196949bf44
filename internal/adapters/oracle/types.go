package oracle

// DTOs raw de la API Hermes. Solo se usan dentro de este paquete.

// latestPriceResponse es la respuesta de GET /v2/updates/price/latest?parsed=true.
type latestPriceResponse struct {
	Parsed []parsedPriceFeed `json:"parsed"`
}

// parsedPriceFeed es un feed ya decodificado por Hermes.
type parsedPriceFeed struct {
	ID    string    `json:"id"`
	Price priceInfo `json:"price"`
}

// priceInfo: price y conf son enteros en string, escalados por 10^expo.
type priceInfo struct {
	Price       string `json:"price"`
	Conf        string `json:"conf"`
	Expo        int    `json:"expo"`
	PublishTime int64  `json:"publish_time"`
}
