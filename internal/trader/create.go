package trader

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"

	"solana-curve-trader/internal/codec"
	"solana-curve-trader/internal/wire"
)

// CreateRequest describes a new token launch.
type CreateRequest struct {
	Name        string
	Symbol      string
	Description string
	ImagePath   string
	DevBuy      float64 // initial dev buy in SOL, may be zero
}

// CreateResult is the outcome of a token creation.
type CreateResult struct {
	Success     bool   `json:"success"`
	Mint        string `json:"mint,omitempty"`
	Signature   string `json:"signature,omitempty"`
	MetadataURI string `json:"metadataUri,omitempty"`
	Confirmed   bool   `json:"confirmed"`
	Warning     string `json:"warning,omitempty"`
	Error       string `json:"error,omitempty"`
}

// Create launches a token: upload metadata, generate the mint keypair, request
// the create transaction, and sign with both the wallet and the mint key. A
// required signer the engine does not hold is fatal here, never warned past.
func (e *Engine) Create(ctx context.Context, req CreateRequest) *CreateResult {
	res := &CreateResult{}

	uri, err := e.uploadMetadata(ctx, req)
	if err != nil {
		res.Error = fmt.Sprintf("metadata upload: %v", err)
		return res
	}
	res.MetadataURI = uri

	mintPub, mintPriv, err := codec.GenerateKeypair()
	if err != nil {
		res.Error = fmt.Sprintf("generate mint keypair: %v", err)
		return res
	}
	mint := codec.EncodeBase58(mintPub)
	res.Mint = mint

	breq := buildRequest{
		PublicKey:        e.wallet.PublicKey,
		Action:           "create",
		Mint:             mint,
		Amount:           req.DevBuy,
		DenominatedInSol: "true",
		Slippage:         DefaultSlippagePct,
		PriorityFee:      DefaultPriorityFee,
		Pool:             "pump",
		TokenMetadata:    &tokenMetadata{Name: req.Name, Symbol: req.Symbol, URI: uri},
	}

	signers := []wire.Signer{
		{PublicKey: e.wallet.PublicKey, PrivateKey: e.wallet.PrivateKey},
		{PublicKey: mint, PrivateKey: mintPriv},
	}

	sig, confirmed, err := e.execute(ctx, breq, signers)
	res.Signature = sig
	res.Confirmed = confirmed
	if err != nil {
		res.Error = err.Error()
		return res
	}
	if !confirmed {
		res.Warning = "transaction submitted but unconfirmed after deadline"
	}

	res.Success = true
	return res
}

// uploadMetadata posts the token metadata and image to the metadata service
// and returns the hosted metadata URI.
func (e *Engine) uploadMetadata(ctx context.Context, req CreateRequest) (string, error) {
	img, err := os.Open(req.ImagePath)
	if err != nil {
		return "", fmt.Errorf("open image: %w", err)
	}
	defer img.Close()

	var body bytes.Buffer
	form := multipart.NewWriter(&body)

	fields := map[string]string{
		"name":        req.Name,
		"symbol":      req.Symbol,
		"description": req.Description,
		"showName":    "true",
	}
	for key, val := range fields {
		if err := form.WriteField(key, val); err != nil {
			return "", fmt.Errorf("write field %s: %w", key, err)
		}
	}

	part, err := form.CreateFormFile("file", filepath.Base(req.ImagePath))
	if err != nil {
		return "", fmt.Errorf("create file part: %w", err)
	}
	if _, err := io.Copy(part, img); err != nil {
		return "", fmt.Errorf("copy image: %w", err)
	}
	if err := form.Close(); err != nil {
		return "", err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, e.metaURL, &body)
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Content-Type", form.FormDataContentType())

	resp, err := e.client.Do(httpReq)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("status %d: %s", resp.StatusCode, bytes.TrimSpace(raw))
	}

	var parsed struct {
		MetadataURI string `json:"metadataUri"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if parsed.MetadataURI == "" {
		return "", fmt.Errorf("response carries no metadata URI")
	}
	return parsed.MetadataURI, nil
}
