package service

import (
	"coinpilot/conf"
	"coinpilot/internal/dao"
	"coinpilot/internal/exchange"
	"coinpilot/internal/model"
	"coinpilot/internal/model/entity"
	"coinpilot/pkg/errors"
	"coinpilot/pkg/errors/ecode"
	"coinpilot/pkg/logger"
	"coinpilot/utils/security"
	"context"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"

	lru "github.com/hashicorp/golang-lru"
)

type ExchangeService interface {
	// 交易所凭证管理
	UserExchangeCreate(ctx context.Context, userId int64, req model.UserExchangeCreateReq) (model.UserExchangeRes, error)
	UserExchangeList(ctx context.Context, userId int64) ([]model.UserExchangeRes, error)
	UserExchangeUpdate(ctx context.Context, userId, id int64, req model.UserExchangeUpdateReq) error
	UserExchangeDelete(ctx context.Context, userId, id int64) error

	// 交易所清单
	CatalogList(ctx context.Context) ([]model.ExchangeCatalogRes, error)

	// engine通过Resolver拿连接器
	exchange.Resolver
}

type exchangeService struct {
	ed dao.ExchangeDao
	// 解密后的连接器按凭证id缓存，更新/删除时失效
	connectors *lru.Cache
}

func NewExchangeService(ed dao.ExchangeDao) *exchangeService {
	c, _ := lru.New(256)
	return &exchangeService{ed: ed, connectors: c}
}

var _ exchange.Resolver = (*exchangeService)(nil)

func (e *exchangeService) UserExchangeCreate(ctx context.Context, userId int64, req model.UserExchangeCreateReq) (res model.UserExchangeRes, err error) {
	catalog, err := e.ed.CatalogGet(ctx, req.ExchangeId)
	if err != nil {
		return res, errors.Wrap(err, ecode.NotFoundErr, "交易所不存在")
	}
	if !catalog.IsActive {
		return res, errors.WithCode(ecode.ExchangeErr, "交易所暂不可用: %s", catalog.Name)
	}
	if catalog.RequiresPassphrase && req.Passphrase == "" {
		return res, errors.WithCode(ecode.ValidateErr, "交易所 %s 需要passphrase", catalog.Name)
	}

	box, err := e.newCipher(nil)
	if err != nil {
		return res, err
	}
	ue := entity.UserExchange{
		UserId:     userId,
		ExchangeId: req.ExchangeId,
		Label:      req.Label,
		Nonce:      base64.StdEncoding.EncodeToString(box.Nonce),
		IsActive:   true,
	}
	if ue.ApiKeyEncrypted, err = box.EncryptString(req.ApiKey); err != nil {
		return res, errors.Wrap(err, ecode.CredentialErr, "凭证加密失败")
	}
	if ue.ApiSecretEncrypted, err = box.EncryptString(req.ApiSecret); err != nil {
		return res, errors.Wrap(err, ecode.CredentialErr, "凭证加密失败")
	}
	if req.Passphrase != "" {
		if ue.PassphraseEncrypted, err = box.EncryptString(req.Passphrase); err != nil {
			return res, errors.Wrap(err, ecode.CredentialErr, "凭证加密失败")
		}
	}
	if err = e.ed.UserExchangeCreate(ctx, &ue); err != nil {
		return res, errors.Wrap(err, ecode.DatabaseErr, "保存凭证失败")
	}
	return model.UserExchangeRes{
		Id:            ue.Id,
		ExchangeId:    ue.ExchangeId,
		ExchangeName:  catalog.Name,
		Label:         ue.Label,
		ApiKeyPreview: maskKey(req.ApiKey),
		IsActive:      ue.IsActive,
		CreatedAt:     ue.CreatedAt,
	}, nil
}

func (e *exchangeService) UserExchangeList(ctx context.Context, userId int64) ([]model.UserExchangeRes, error) {
	rows, err := e.ed.UserExchangeList(ctx, userId)
	if err != nil {
		return nil, errors.Wrap(err, ecode.DatabaseErr, "查询凭证失败")
	}
	catalogs, err := e.ed.CatalogList(ctx)
	if err != nil {
		return nil, errors.Wrap(err, ecode.DatabaseErr, "查询交易所失败")
	}
	names := make(map[int64]string, len(catalogs))
	for _, c := range catalogs {
		names[c.Id] = c.Name
	}

	list := make([]model.UserExchangeRes, 0, len(rows))
	for _, ue := range rows {
		preview := ""
		if creds, derr := e.decryptRow(&ue, ""); derr == nil {
			preview = maskKey(creds.ApiKey)
		}
		list = append(list, model.UserExchangeRes{
			Id:            ue.Id,
			ExchangeId:    ue.ExchangeId,
			ExchangeName:  names[ue.ExchangeId],
			Label:         ue.Label,
			ApiKeyPreview: preview,
			IsActive:      ue.IsActive,
			CreatedAt:     ue.CreatedAt,
		})
	}
	return list, nil
}

func (e *exchangeService) UserExchangeUpdate(ctx context.Context, userId, id int64, req model.UserExchangeUpdateReq) error {
	ue, err := e.ed.UserExchangeGet(ctx, userId, id)
	if err != nil {
		return errors.Wrap(err, ecode.NotFoundErr, "凭证不存在")
	}
	columns := map[string]interface{}{}
	if req.Label != "" {
		columns["label"] = req.Label
	}
	if req.IsActive != nil {
		columns["is_active"] = *req.IsActive
	}
	// 任意密钥字段变更都整体重新加密, 换新nonce
	if req.ApiKey != "" || req.ApiSecret != "" || req.Passphrase != "" {
		old, derr := e.decryptRow(&ue, "")
		if derr != nil && (req.ApiKey == "" || req.ApiSecret == "") {
			return derr
		}
		apiKey, apiSecret, passphrase := req.ApiKey, req.ApiSecret, req.Passphrase
		if apiKey == "" {
			apiKey = old.ApiKey
		}
		if apiSecret == "" {
			apiSecret = old.ApiSecret
		}
		if passphrase == "" && old != nil {
			passphrase = old.Passphrase
		}
		box, berr := e.newCipher(nil)
		if berr != nil {
			return berr
		}
		columns["nonce"] = base64.StdEncoding.EncodeToString(box.Nonce)
		if columns["api_key_encrypted"], err = box.EncryptString(apiKey); err != nil {
			return errors.Wrap(err, ecode.CredentialErr, "凭证加密失败")
		}
		if columns["api_secret_encrypted"], err = box.EncryptString(apiSecret); err != nil {
			return errors.Wrap(err, ecode.CredentialErr, "凭证加密失败")
		}
		if passphrase != "" {
			if columns["passphrase_encrypted"], err = box.EncryptString(passphrase); err != nil {
				return errors.Wrap(err, ecode.CredentialErr, "凭证加密失败")
			}
		}
	}
	if len(columns) == 0 {
		return nil
	}
	if err = e.ed.UserExchangeUpdate(ctx, userId, id, columns); err != nil {
		return errors.Wrap(err, ecode.DatabaseErr, "更新凭证失败")
	}
	e.connectors.Remove(id)
	return nil
}

func (e *exchangeService) UserExchangeDelete(ctx context.Context, userId, id int64) error {
	if err := e.ed.UserExchangeDelete(ctx, userId, id); err != nil {
		return errors.Wrap(err, ecode.NotFoundErr, "凭证不存在")
	}
	e.connectors.Remove(id)
	return nil
}

func (e *exchangeService) CatalogList(ctx context.Context) ([]model.ExchangeCatalogRes, error) {
	rows, err := e.ed.CatalogList(ctx)
	if err != nil {
		return nil, errors.Wrap(err, ecode.DatabaseErr, "查询交易所失败")
	}
	list := make([]model.ExchangeCatalogRes, 0, len(rows))
	for _, c := range rows {
		list = append(list, model.ExchangeCatalogRes{
			Id:                 c.Id,
			Name:               c.Name,
			Driver:             c.Driver,
			Url:                c.Url,
			Icon:               c.Icon,
			SupportsSpot:       c.SupportsSpot,
			RequiresPassphrase: c.RequiresPassphrase,
		})
	}
	return list, nil
}

// Resolve 按凭证id解析连接器, engine每个tick调用, 命中缓存时零开销
func (e *exchangeService) Resolve(ctx context.Context, userId, exchangeRef int64) (exchange.Connector, error) {
	if v, ok := e.connectors.Get(exchangeRef); ok {
		return v.(exchange.Connector), nil
	}
	ue, err := e.ed.UserExchangeGet(ctx, userId, exchangeRef)
	if err != nil {
		return nil, errors.Wrap(err, ecode.CredentialErr, "交易所凭证不存在")
	}
	if !ue.IsActive {
		return nil, errors.WithCode(ecode.CredentialErr, "交易所凭证已停用")
	}
	catalog, err := e.ed.CatalogGet(ctx, ue.ExchangeId)
	if err != nil {
		return nil, errors.Wrap(err, ecode.CredentialErr, "交易所不存在")
	}
	creds, err := e.decryptRow(&ue, catalog.Driver)
	if err != nil {
		return nil, err
	}

	var conn exchange.Connector
	switch creds.Driver {
	case "okx":
		conn = exchange.NewOkxConnector(creds.ApiKey, creds.ApiSecret, creds.Passphrase)
	case "simulated":
		conn = exchange.NewSimulatedConnector()
	default:
		return nil, errors.WithCode(ecode.ExchangeErr, "不支持的交易所驱动: %s", creds.Driver)
	}
	e.connectors.Add(exchangeRef, conn)
	return conn, nil
}

// decryptRow 解密一行凭证, driver可为空
func (e *exchangeService) decryptRow(ue *entity.UserExchange, driver string) (*model.ConnectorCredentials, error) {
	nonce, err := base64.StdEncoding.DecodeString(ue.Nonce)
	if err != nil {
		return nil, errors.Wrap(err, ecode.CredentialErr, "nonce解码失败")
	}
	box, err := e.newCipher(nonce)
	if err != nil {
		return nil, err
	}
	creds := &model.ConnectorCredentials{Driver: driver}
	if creds.ApiKey, err = box.DecryptString(ue.ApiKeyEncrypted); err != nil {
		logger.Errorf("凭证解密失败 id=%d: %v", ue.Id, err)
		return nil, errors.Wrap(err, ecode.CredentialErr, "凭证解密失败")
	}
	if creds.ApiSecret, err = box.DecryptString(ue.ApiSecretEncrypted); err != nil {
		return nil, errors.Wrap(err, ecode.CredentialErr, "凭证解密失败")
	}
	if ue.PassphraseEncrypted != "" {
		if creds.Passphrase, err = box.DecryptString(ue.PassphraseEncrypted); err != nil {
			return nil, errors.Wrap(err, ecode.CredentialErr, "凭证解密失败")
		}
	}
	return creds, nil
}

// newCipher 用服务端密钥对构造AEAD, nonce为nil时随机生成
func (e *exchangeService) newCipher(nonce []byte) (*security.ChaChaPoly, error) {
	sec := conf.AppConfig.Security
	priv, err := hex.DecodeString(sec.PrivateKey)
	if err != nil {
		return nil, errors.Wrap(err, ecode.CredentialErr, "私钥配置无效")
	}
	pub, err := hex.DecodeString(sec.PublicKey)
	if err != nil {
		return nil, errors.Wrap(err, ecode.CredentialErr, "公钥配置无效")
	}
	box, err := security.NewChaChaPoly(priv, pub, []byte(sec.Salt), []byte(sec.SharedInfo), nonce)
	if err != nil {
		return nil, errors.Wrap(err, ecode.CredentialErr, "初始化加密器失败")
	}
	return box, nil
}

// maskKey 保留首尾各4位, 其余打码
func maskKey(key string) string {
	if len(key) <= 8 {
		return strings.Repeat("*", len(key))
	}
	return fmt.Sprintf("%s****%s", key[:4], key[len(key)-4:])
}
