package services

import (
	"database/sql"
	"fmt"
	"log"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/yuewan10000-ops/task-platform/models"
)

// ProductService 商品与配置服务
type ProductService struct {
	db *sqlx.DB
}

// NewProductService 创建商品服务
func NewProductService(db *sqlx.DB) *ProductService {
	return &ProductService{db: db}
}

const productColumns = `id, name, description, image, is_active, created_at, updated_at`

// List 全部商品（按创建时间倒序）
func (s *ProductService) List() ([]models.Product, error) {
	products := []models.Product{}
	query := `SELECT ` + productColumns + ` FROM products ORDER BY created_at DESC, id DESC`
	if err := s.db.Select(&products, query); err != nil {
		return nil, err
	}
	return products, nil
}

// ListActive 上架中的商品（A端可见）
func (s *ProductService) ListActive() ([]models.Product, error) {
	products := []models.Product{}
	query := `SELECT ` + productColumns + ` FROM products WHERE is_active = true ORDER BY created_at DESC, id DESC`
	if err := s.db.Select(&products, query); err != nil {
		return nil, err
	}
	return products, nil
}

// Create 创建商品
func (s *ProductService) Create(product *models.Product) error {
	now := time.Now()
	product.CreatedAt = now
	product.UpdatedAt = now

	result, err := s.db.Exec(
		`INSERT INTO products (name, description, image, is_active, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		product.Name, product.Description, product.Image, product.IsActive, product.CreatedAt, product.UpdatedAt,
	)
	if err != nil {
		log.Printf("ERROR: Failed to insert product: %v", err)
		return err
	}
	product.ID, err = result.LastInsertId()
	if err != nil {
		return err
	}
	return nil
}

// CreateBatch 批量创建商品（同一事务，全部成功或全部失败）
func (s *ProductService) CreateBatch(products []models.Product) ([]models.Product, error) {
	if len(products) == 0 {
		return nil, fmt.Errorf("商品列表为空")
	}

	tx, err := s.db.Beginx()
	if err != nil {
		log.Printf("ERROR: Failed to begin transaction: %v", err)
		return nil, err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
			log.Printf("INFO: Transaction rolled back")
		}
	}()

	now := time.Now()
	for i := range products {
		products[i].CreatedAt = now
		products[i].UpdatedAt = now

		var result sql.Result
		result, err = tx.Exec(
			`INSERT INTO products (name, description, image, is_active, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			products[i].Name, products[i].Description, products[i].Image, products[i].IsActive, now, now,
		)
		if err != nil {
			log.Printf("ERROR: Failed to insert product %q: %v", products[i].Name, err)
			return nil, err
		}
		products[i].ID, err = result.LastInsertId()
		if err != nil {
			return nil, err
		}
	}

	if err = tx.Commit(); err != nil {
		log.Printf("ERROR: Failed to commit transaction: %v", err)
		return nil, err
	}

	log.Printf("INFO: Batch created %d products", len(products))
	return products, nil
}

// Update 更新商品（未传字段保持不变）
func (s *ProductService) Update(id int64, name, description, image *string, isActive *bool) (*models.Product, error) {
	var product models.Product
	err := s.db.Get(&product, `SELECT `+productColumns+` FROM products WHERE id = ?`, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("商品不存在")
		}
		return nil, err
	}

	if name != nil {
		product.Name = *name
	}
	if description != nil {
		product.Description = description
	}
	if image != nil {
		product.Image = image
	}
	if isActive != nil {
		product.IsActive = *isActive
	}
	product.UpdatedAt = time.Now()

	_, err = s.db.Exec(
		`UPDATE products SET name = ?, description = ?, image = ?, is_active = ?, updated_at = ? WHERE id = ?`,
		product.Name, product.Description, product.Image, product.IsActive, product.UpdatedAt, id,
	)
	if err != nil {
		log.Printf("ERROR: Failed to update product %d: %v", id, err)
		return nil, err
	}
	return &product, nil
}

// Delete 删除商品
func (s *ProductService) Delete(id int64) error {
	result, err := s.db.Exec(`DELETE FROM products WHERE id = ?`, id)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return fmt.Errorf("商品不存在")
	}
	return nil
}

// GetPriceConfig 商品价格比例配置（单行，不存在时返回默认值并落库）
func (s *ProductService) GetPriceConfig() (*models.ProductPriceConfig, error) {
	var config models.ProductPriceConfig
	err := s.db.Get(&config, `SELECT id, min_rate, max_rate, created_at, updated_at FROM product_price_configs ORDER BY id LIMIT 1`)
	if err == nil {
		return &config, nil
	}
	if err != sql.ErrNoRows {
		return nil, err
	}

	// 默认区间
	now := time.Now()
	config = models.ProductPriceConfig{MinRate: 0.29, MaxRate: 0.60, CreatedAt: now, UpdatedAt: now}
	result, err := s.db.Exec(
		`INSERT INTO product_price_configs (min_rate, max_rate, created_at, updated_at) VALUES (?, ?, ?, ?)`,
		config.MinRate, config.MaxRate, now, now,
	)
	if err != nil {
		log.Printf("ERROR: Failed to insert default price config: %v", err)
		return nil, err
	}
	config.ID, err = result.LastInsertId()
	if err != nil {
		return nil, err
	}
	return &config, nil
}

// UpdatePriceConfig 更新商品价格比例配置（保持单行）
func (s *ProductService) UpdatePriceConfig(minRate, maxRate float64) (*models.ProductPriceConfig, error) {
	if minRate > maxRate {
		return nil, fmt.Errorf("最小比例不能大于最大比例")
	}

	config, err := s.GetPriceConfig()
	if err != nil {
		return nil, err
	}

	config.MinRate = minRate
	config.MaxRate = maxRate
	config.UpdatedAt = time.Now()

	_, err = s.db.Exec(
		`UPDATE product_price_configs SET min_rate = ?, max_rate = ?, updated_at = ? WHERE id = ?`,
		config.MinRate, config.MaxRate, config.UpdatedAt, config.ID,
	)
	if err != nil {
		log.Printf("ERROR: Failed to update price config: %v", err)
		return nil, err
	}
	return config, nil
}

// GetRechargeConfig 充值收款配置（单行，不存在时返回空配置并落库）
func (s *ProductService) GetRechargeConfig() (*models.RechargeConfig, error) {
	var config models.RechargeConfig
	err := s.db.Get(&config, `SELECT id, trc20_address, trx_address, created_at, updated_at FROM recharge_configs ORDER BY id LIMIT 1`)
	if err == nil {
		return &config, nil
	}
	if err != sql.ErrNoRows {
		return nil, err
	}

	now := time.Now()
	config = models.RechargeConfig{CreatedAt: now, UpdatedAt: now}
	result, err := s.db.Exec(
		`INSERT INTO recharge_configs (trc20_address, trx_address, created_at, updated_at) VALUES (NULL, NULL, ?, ?)`,
		now, now,
	)
	if err != nil {
		log.Printf("ERROR: Failed to insert default recharge config: %v", err)
		return nil, err
	}
	config.ID, err = result.LastInsertId()
	if err != nil {
		return nil, err
	}
	return &config, nil
}

// UpdateRechargeConfig 更新充值收款配置（保持单行）
func (s *ProductService) UpdateRechargeConfig(trc20Address, trxAddress *string) (*models.RechargeConfig, error) {
	config, err := s.GetRechargeConfig()
	if err != nil {
		return nil, err
	}

	if trc20Address != nil {
		config.TRC20Address = trc20Address
	}
	if trxAddress != nil {
		config.TRXAddress = trxAddress
	}
	config.UpdatedAt = time.Now()

	_, err = s.db.Exec(
		`UPDATE recharge_configs SET trc20_address = ?, trx_address = ?, updated_at = ? WHERE id = ?`,
		config.TRC20Address, config.TRXAddress, config.UpdatedAt, config.ID,
	)
	if err != nil {
		log.Printf("ERROR: Failed to update recharge config: %v", err)
		return nil, err
	}
	return config, nil
}
