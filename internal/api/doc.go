// Package api 處理 HTTP 請求路由和處理。
//
// 這個包包含了所有的 HTTP 路由，handlers 子套件負責將 HTTP 請求轉換為
// 適當的服務調用，並將結果（包含串流的回合內容）轉換回 HTTP 響應。
package api
