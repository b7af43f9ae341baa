package models

// PromoteDraftTx exposes the transactional half of PromoteDraft to tests.
var PromoteDraftTx = promoteDraftTx
