package dto

type AddToCartRequest struct {
	ProductID  string `json:"product_id" binding:"required"`
	Qty        int    `json:"qty"`
	Detail     string `json:"detail"`
	SaleTypeID string `json:"sale_type_id"`
}

// CartLineRequest адресует позицию либо ключом из ответа корзины,
// либо тройкой product_id / sale_type_id / detail
type CartLineRequest struct {
	Key        string `json:"key"`
	ProductID  string `json:"product_id"`
	SaleTypeID string `json:"sale_type_id"`
	Detail     string `json:"detail"`
	Qty        int    `json:"qty"`
}

type CartCountResponse struct {
	Count int `json:"count"`
}

type RemoveFromCartResponse struct {
	Removed bool `json:"removed"`
}
